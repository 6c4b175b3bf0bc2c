package chapterize

// Token budgets ported verbatim from the precursor's prompt constants:
// gpt-3.5-turbo's 4096-token window minus per-tier overhead, except the
// large multi-shot budget, which scales the small one to a 16k window.
const (
	multiShotSmallLimit = 3584  // GPT_3_5_TURBO - 512
	multiShotLargeLimit = 14336 // 16384 * 3584 / 4096
	oneByOneLimit       = 3936  // GPT_3_5_TURBO - 160
)

const multiShotSystemPrompt = `
Given the following video subtitles represented as a JSON array as shown below:

` + "```json" + `
[
  {
    "start": int field, the subtitle start time in seconds.
    "text": string field, the subtitle text itself.
  }
]
` + "```" + `

Please generate the subtitles' outlines from top to bottom,
and extract an useful information from each outline context;
each useful information should end with a period;
exclude the introduction at the beginning and the conclusion at the end;
exclude text like "[Music]", "[Applause]", "[Laughter]" and so on.

Return a JSON array as shown below:

` + "```json" + `
[
  {
    "outline": string field, a brief outline title in language "%s".
    "information": string field, an useful information in the outline context in language "%s".
    "start": int field, the start time of the outline in seconds.
    "timestamp": string field, the start time of the outline in "HH:mm:ss" format.
  }
]
` + "```" + `

Please output JSON only.
Do not output any redundant explanation.
`

const oneByOneSystemPrompt = `
Given a part of video subtitles JSON array as shown below:

` + "```json" + `
[
  {
    "index": int field, the subtitle line index.
    "start": int field, the subtitle start time in seconds.
    "text": string field, the subtitle text itself.
  }
]
` + "```" + `

Your job is trying to generate the subtitles' outline with follow steps:

1. Extract an useful information as the outline context,
2. exclude out-of-context parts and irrelevant parts,
3. exclude text like "[Music]", "[Applause]", "[Laughter]" and so on,
4. summarize the useful information to one-word as the outline title.

Please return a JSON object as shown below:

` + "```json" + `
{
  "end_at": int field, the outline context end at which subtitle index.
  "start": int field, the start time of the outline context in seconds, must >= %d.
  "timestamp": string field, the start time of the outline context in "HH:mm:ss" format.
  "outline": string field, the outline title in language "%s".
}
` + "```" + `

Please output JSON only.
Do not output any redundant explanation.
`
