package prompts

// weeklyDigestPrompt is the canned request behind the digest command.
// Scoping to the last seven days is left to the model, which the system
// prompt steers toward the since_date parameter.
const weeklyDigestPrompt = "Please provide a summary of the most important AWS announcements from this week. Focus on major service launches, significant updates, and notable features."

// WeeklyDigestPrompt returns the weekly digest request.
func WeeklyDigestPrompt() string {
	return weeklyDigestPrompt
}
