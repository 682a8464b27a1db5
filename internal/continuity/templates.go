package continuity

// SystemInstruction is the summarizer instruction used for capture.
const SystemInstruction = `Extract session state for continuation. Be concise - this will be injected into limited context.

Include:
1. Current task/goal being worked on
2. Key decisions made
3. Important context (files modified, variables, errors encountered)
4. Next planned steps

Format as a brief, structured summary.`

// MessagePrefix precedes the transcript tail in the summarizer message.
const MessagePrefix = "Conversation to extract state from:\n\n"

// RecallText wraps a stored record for injection into the working context.
func RecallText(recordText string) string {
	return "\n## Previous Session Context\n\n" +
		"The following is your saved state from a previous session. Use this to continue seamlessly:\n\n" +
		recordText +
		"\n\n---\n" +
		"Note: This state was recalled automatically. Verify any time-sensitive information before proceeding.\n"
}
