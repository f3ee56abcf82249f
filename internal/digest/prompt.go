package digest

// Placeholder replaced with the indented article JSON.
const newsDataPlaceholder = "{{newsData}}"

// DefaultPrompt asks the model for a short plain-text market briefing.
const DefaultPrompt = `You are a financial news editor writing a short daily market briefing
for a retail investor who follows a personal stock watchlist.

Summarize the articles below. Rules:
- Open with one sentence on the overall market mood.
- Then give 3 to 5 bullet points, each naming the ticker when one applies.
- Plain text only, no markdown headings, no links.
- Do not invent numbers that are not in the articles.
- If the articles are unrelated to markets, reply exactly: No market news.

Articles (JSON):
{{newsData}}
`
