package pipeline

import "fmt"

const (
	modifySystemPrompt = "You are a JSON generator. Output valid JSON only. Do not duplicate keys."
	repairSystemPrompt = "Fix the JSON. Output ONLY valid JSON."
)

// ModifyPrompt asks for the full updated configuration.
func ModifyPrompt(input string, current []byte) string {
	return fmt.Sprintf(`
You are a Configuration Bot. Your goal is to update the JSON below based on the user request.

### INSTRUCTIONS:
1. Parse the "Current JSON".
2. Apply the "User Request" modification.
3. Output the FULL Valid JSON.
4. **CRITICAL RULE**: Do NOT repeat keys. (e.g., Do not write "services" twice).
5. **CRITICAL RULE**: Ensure "namespace" and other root keys are preserved.

### DATA:
User Request: "%s"

Current JSON:
%s

### OUTPUT:
Return ONLY the JSON code. No explanations.
`, input, current)
}

// RepairPrompt feeds a validation failure back together with the rejected text.
func RepairPrompt(reason, previous string) string {
	return fmt.Sprintf(`
ERROR: The JSON you generated is invalid.
Reason: %s

You must fix the JSON structure.
1. Make sure there are NO duplicate keys.
2. Make sure all required fields (like 'namespace') are present.
3. Return the FULL corrected JSON.

Previous Invalid Output:
%s
`, reason, previous)
}
