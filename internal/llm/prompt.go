package llm

import (
	"bytes"
	"fmt"
	"text/template"
)

const systemAcademic = "You are a professional academic assistant for university course documents."

var (
	summarizeTmpl = template.Must(template.New("summarize").Parse(
		`Summarize the following course syllabus concisely in {{.Language}}.

Content:
{{.Text}}

Summary ({{.Language}}):`))

	narrateTmpl = template.Must(template.New("narrate").Parse(
		`Compare the two versions of the document below.
Answer only in {{.Language}}. Do not greet and do not add any preamble; start directly with the analysis.

--- OLD VERSION ---
{{.Old}}

--- NEW VERSION ---
{{.New}}

Analysis of the changes:`))

	alignmentTmpl = template.Must(template.New("alignment").Parse(
		`You are an education accreditation expert. Assess how well the Course Learning Outcome (CLO) supports the Program Learning Outcome (PLO).
CLO: {{.CLO}}
PLO: {{.PLO}}

Return ONLY a JSON object with these keys:
- "score": integer from 0 to 100
- "is_aligned": boolean
- "reasoning": string, written in {{.Language}}`))

	extractTmpl = template.Must(template.New("extract").Parse(
		`Extract the syllabus below into ONE JSON object with exactly this shape:
{{.Shape}}
Use "" for unknown text, 0 for unknown numbers and [] for missing lists. Keep the document's language for values.
Return ONLY the JSON object.

Syllabus text:
{{.Text}}`))

	compareTmpl = template.Must(template.New("compare").Parse(
		`Compare the OLD and NEW syllabus records field by field.
Return ONLY one JSON object with this shape:
{{.Shape}}
"changeKind" must be one of Changed, Added, Removed. Write "summary" and every "explanation" in {{.Language}}.

OLD:
{{.Old}}

NEW:
{{.New}}`))
)

const syllabusShape = `{"courseCode": "", "courseName": "", "department": "", "instructor": "", "credits": 0,
 "academicYear": "", "type": "", "description": "", "target": [""],
 "sessionPlans": [{"weekNo": 0, "topic": "", "teachingMethod": ""}],
 "assessments": [{"name": "", "weightPercent": 0, "criteria": ""}],
 "materials": [{"title": "", "author": "", "materialType": ""}],
 "relatedCourses": [{"courseCode": "", "courseName": "", "credits": 0, "department": "", "relationType": ""}]}`

const comparisonShape = `{"similarityPercent": 0, "summary": "",
 "details": [{"field": "", "changeKind": "Changed", "oldValue": "", "newValue": "", "explanation": ""}]}`

func render(t *template.Template, data any) (string, error) {
	var b bytes.Buffer
	if err := t.Execute(&b, data); err != nil {
		return "", fmt.Errorf("render %s prompt: %w", t.Name(), err)
	}
	return b.String(), nil
}
