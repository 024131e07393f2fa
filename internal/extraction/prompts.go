package extraction

const extractPrompt = `You are a belief extraction system. Analyze the following content and extract distinct beliefs the agent should hold.

For each belief, determine:
- statement: a clear, standalone assertion
- category: a short lowercase topic label (e.g. "preference", "fact", "environment")
- confidence: how strongly the content supports the statement (0.0 to 1.0)
- positive: true if the content asserts the statement, false if it denies it
- tags: optional keywords

Respond ONLY with a JSON array. No markdown, no explanation. Example:
[{"statement":"User prefers dark mode","category":"preference","confidence":0.9,"positive":true,"tags":["ui"]}]

If no beliefs can be extracted, respond with an empty array: []

Category hint (may be empty): %s

Content:
%s`

const conflictPrompt = `Do these two statements contradict each other?
Statement A (%s): %s
Statement B (%s): %s

Answer only "true" or "false". No explanation.`

const similarityPrompt = `How similar in meaning are these two statements?
Statement A: %s
Statement B: %s

Answer only with a number between 0.0 (unrelated) and 1.0 (same meaning). No explanation.`

const confidencePrompt = `Given this source content, how strongly does it support the statement?

Content: %s
Statement: %s
Additional context (may be empty): %s

Answer only with a number between 0.0 (no support) and 1.0 (certain). No explanation.`
