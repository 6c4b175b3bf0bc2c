package refine

// Token budgets ported verbatim from the precursor's refine-prompt
// constants (gpt-3.5-turbo's 4096-token window).
const (
	firstLimit = 3584 // GPT_3_5_TURBO - 512
	nextLimit  = 2560 // GPT_3_5_TURBO * 5 / 8
)

const firstSystemPrompt = `
Given a part of video subtitles about "%s".
Please summarize and list the most important points of the subtitles.

The subtitles consists of many lines.
The format of each line is like ` + "`[text...]`" + `, for example ` + "`[hello, world]`" + `.

The output format should be a markdown bullet list, and each bullet point should end with a period.
The output language should be "%s" in ISO 639-1.

Please exclude line like "[Music]", "[Applause]", "[Laughter]" and so on.
Please merge similar viewpoints before the final output.
Please keep the output clear and accurate.

Do not output any redundant or irrelevant points.
Do not output any redundant explanation or information.
`

const nextSystemPrompt = `
We have provided an existing bullet list summary up to a certain point:

` + "```" + `
%s
` + "```" + `

We have the opportunity to refine the existing summary (only if needed) with some more content.

The content is a part of video subtitles about "%s", consists of many lines.
The format of each line is like ` + "`[text...]`" + `, for example ` + "`[hello, world]`" + `.

Please refine the existing bullet list summary (only if needed) with the given content.
If the the given content isn't useful or doesn't make sense, don't refine the the existing summary.

The output format should be a markdown bullet list, and each bullet point should end with a period.
The output language should be "%s" in BCP 47.

Please exclude line like "[Music]", "[Applause]", "[Laughter]" and so on.
Please merge similar viewpoints before the final output.
Please keep the output clear and accurate.

Do not output any redundant or irrelevant points.
Do not output any redundant explanation or information.
`
