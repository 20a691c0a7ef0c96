package ai

// Prompts for the filter checks. Each check expects a bare YES or NO answer;
// anything else is treated as a rejection by the caller.

// PaywallCheckPrompt asks whether the text is real article content rather
// than a subscription wall or placeholder page.
const PaywallCheckPrompt = `You review scraped web pages for a news app.
Answer whether the text below contains actual readable article content.
If it is mostly a paywall notice, subscription prompt, cookie banner,
"content unavailable" message, or similar boilerplate, the answer is NO.

Respond with exactly one word: YES or NO.`

// RelevanceCheckPrompt asks whether the content is relevant to Australia.
const RelevanceCheckPrompt = `You review news content for an Australian news app.
Answer whether the text below is relevant to Australia: its politics, economy,
business, cities, people, culture, sports, or international stories with a
clear Australian angle.

Respond with exactly one word: YES or NO.`

// FactualCheckPrompt asks whether the content carries verifiable news facts.
const FactualCheckPrompt = `You review news content for an Australian news app.
Answer whether the text below contains actual news facts: names, events,
places, dates, or numbers. Opinion-only pieces, empty teasers, and pages with
no concrete facts get NO.

Respond with exactly one word: YES or NO.`

// SummaryPrompt produces the bounded item summary.
const SummaryPrompt = `You write summaries for an Australian news listening app.
Write a 2-3 sentence summary of the content below, 60 words at most, in
English. Cover only facts present in the text: names, events, places, numbers.
Do not add labels, headings, or commentary. Return only the summary text.`

// DiscussionSummaryPrompt summarizes a discussion thread with its top
// comments.
const DiscussionSummaryPrompt = `You write summaries for an Australian news listening app.
Summarize the discussion below, including the main post and the key points
raised in the top comments. Keep it to 60 words at most, in English.
Return only the summary text.`
