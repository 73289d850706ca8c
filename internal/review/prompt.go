package review

import (
	"fmt"
	"strings"
)

func baseCoach(area string) string {
	return fmt.Sprintf(`You are a coding coach who is trained to give feedback only on "%s". Your task is to provide constructive feedback on the code provided by the user. You should reply with a JSON object containing feedback on the code only on the area that you have been assigned to below.

You should never, under any circumstances, give the feedback that there should be more code comments or better function documentation. Aim for better, more useful feedback.

All feedback should be in markdown format. All titles used should use H3 as the largest heading.`, area)
}

const conversationalCoach = `You are a coding coach. Your task is to provide constructive feedback on the code provided by the user.

You will know the codebase, the previous feedback given and then you will be answering questions and queries the trainee has about the feedback.

Keep responses fairly short and conversational.`

const similarityPrompt = `You are a similarity classifier for code review feedback.

You are given a list of feedback points.
Your task is ONLY to identify which feedback points describe the SAME underlying issue
and therefore could be merged.

Rules:
1. Do NOT rewrite, summarize, or remove any feedback.
2. Do NOT create new feedback.
3. Only decide grouping.
4. Two feedback points can be grouped ONLY IF:
   - They refer to the exact same line_numbers
   - They describe the same root problem, not just related concepts
5. If nothing should be grouped, return an empty list.

Each merge group is an array of feedback point titles that could be merged.
Only include groups with 2 or more titles.

This is a classification task, not an editing task.`

// NumberLines prefixes every line with its 1-based number as "N: line".
func NumberLines(source string) string {
	src := strings.Split(source, "\n")
	var b strings.Builder
	for i, line := range src {
		if i > 0 {
			b.WriteByte('\n')
		}
		fmt.Fprintf(&b, "%d: %s", i+1, line)
	}
	return b.String()
}

// Transcript serializes items as key:value blocks separated by a blank line.
func Transcript(items []Item) string {
	blocks := make([]string, len(items))
	for i, it := range items {
		blocks[i] = strings.Join([]string{
			"title:" + it.Title,
			"description:" + it.Description,
			"questions:" + it.Questions,
			"line_numbers:" + it.LineNumbers,
			"code_example:" + it.CodeExample,
			"summary:" + it.Summary,
			"type:" + string(it.Category),
			fmt.Sprintf("severity:%d", it.Severity),
		}, "\n")
	}
	return strings.Join(blocks, "\n\n")
}

func repairPrompt(parseErr error) string {
	return fmt.Sprintf(
		"Your previous response was not valid JSON. The error was: %s\n\nPlease fix it and respond with ONLY a valid JSON object matching the schema.",
		parseErr.Error(),
	)
}

// stripFences removes a surrounding markdown code fence, if any.
func stripFences(content string) string {
	content = strings.TrimSpace(content)
	if !strings.HasPrefix(content, "```") {
		return content
	}
	lines := strings.Split(content, "\n")
	if len(lines) < 2 {
		return strings.Trim(content, "`")
	}
	end := len(lines)
	if strings.TrimSpace(lines[end-1]) == "```" {
		end--
	}
	return strings.TrimSpace(strings.Join(lines[1:end], "\n"))
}
