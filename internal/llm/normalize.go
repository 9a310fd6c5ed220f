package llm

import (
	"encoding/json"
	"fmt"
	"maps"
	"math"
	"slices"
	"strconv"
	"strings"
)

// Placeholders for session-plan fields the model or the caller left out.
const (
	PlaceholderTopic  = "General topic"
	PlaceholderMethod = "Lecture"
)

var syllabusSynonyms = map[string]string{
	"code":             "courseCode",
	"course_code":      "courseCode",
	"name":             "courseName",
	"course_name":      "courseName",
	"deptName":         "department",
	"dept":             "department",
	"lecturerName":     "instructor",
	"lecturer":         "instructor",
	"credit":           "credits",
	"academic_year":    "academicYear",
	"courseType":       "type",
	"learningOutcomes": "target",
	"objectives":       "target",
	"targets":          "target",
	"session_plans":    "sessionPlans",
	"sessions":         "sessionPlans",
	"courseRelations":  "relatedCourses",
	"related_courses":  "relatedCourses",
}

var sessionSynonyms = map[string]string{
	"content":         "topic",
	"title":           "topic",
	"name":            "topic",
	"method":          "teachingMethod",
	"teaching_method": "teachingMethod",
	"week":            "weekNo",
	"week_no":         "weekNo",
	"weekNumber":      "weekNo",
}

var assessmentSynonyms = map[string]string{
	"weight":         "weightPercent",
	"weight_percent": "weightPercent",
	"percent":        "weightPercent",
	"criterion":      "criteria",
}

var materialSynonyms = map[string]string{
	"name":          "title",
	"type":          "materialType",
	"material_type": "materialType",
}

var relatedSynonyms = map[string]string{
	"code":          "courseCode",
	"name":          "courseName",
	"credit":        "credits",
	"deptName":      "department",
	"type":          "relationType",
	"relation_type": "relationType",
}

var comparisonSynonyms = map[string]string{
	"similarity":         "similarityPercent",
	"similarity_percent": "similarityPercent",
	"similarityScore":    "similarityPercent",
	"changes":            "details",
	"differences":        "details",
}

var changeSynonyms = map[string]string{
	"change_kind": "changeKind",
	"kind":        "changeKind",
	"type":        "changeKind",
	"old":         "oldValue",
	"old_value":   "oldValue",
	"before":      "oldValue",
	"new":         "newValue",
	"new_value":   "newValue",
	"after":       "newValue",
	"reason":      "explanation",
	"description": "explanation",
}

// rename moves synonym keys to their canonical names without overwriting a
// canonical key that already carries a value; null and blank strings count as
// absent. Synonyms are applied in sorted order so the winner among several is
// stable.
func rename(m map[string]any, synonyms map[string]string) {
	for _, from := range slices.Sorted(maps.Keys(synonyms)) {
		to := synonyms[from]
		v, ok := m[from]
		if !ok {
			continue
		}
		if cur, exists := m[to]; !exists || blank(cur) {
			m[to] = v
		}
		delete(m, from)
	}
}

func blank(v any) bool {
	if v == nil {
		return true
	}
	s, ok := v.(string)
	return ok && strings.TrimSpace(s) == ""
}

// ParseSyllabus decodes a JSON object leniently into a normalized Syllabus.
func ParseSyllabus(raw []byte) (Syllabus, error) {
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return NormalizeSyllabus(Syllabus{}), fmt.Errorf("decode syllabus: %w", err)
	}
	if m == nil {
		return NormalizeSyllabus(Syllabus{}), fmt.Errorf("decode syllabus: not an object")
	}
	rename(m, syllabusSynonyms)

	s := Syllabus{
		CourseCode:   str(m["courseCode"]),
		CourseName:   str(m["courseName"]),
		Department:   str(m["department"]),
		Instructor:   str(m["instructor"]),
		Credits:      integer(m["credits"]),
		AcademicYear: str(m["academicYear"]),
		Type:         str(m["type"]),
		Description:  str(m["description"]),
	}
	for _, v := range list(m["target"]) {
		if t := str(v); t != "" {
			s.Target = append(s.Target, t)
		}
	}
	for _, e := range objects(m["sessionPlans"]) {
		rename(e, sessionSynonyms)
		s.SessionPlans = append(s.SessionPlans, SessionPlan{
			WeekNo:         integer(e["weekNo"]),
			Topic:          str(e["topic"]),
			TeachingMethod: str(e["teachingMethod"]),
		})
	}
	for _, e := range objects(m["assessments"]) {
		rename(e, assessmentSynonyms)
		s.Assessments = append(s.Assessments, Assessment{
			Name:          str(e["name"]),
			WeightPercent: number(e["weightPercent"]),
			Criteria:      str(e["criteria"]),
		})
	}
	for _, e := range objects(m["materials"]) {
		rename(e, materialSynonyms)
		s.Materials = append(s.Materials, Material{
			Title:        str(e["title"]),
			Author:       str(e["author"]),
			MaterialType: str(e["materialType"]),
		})
	}
	for _, e := range objects(m["relatedCourses"]) {
		rename(e, relatedSynonyms)
		s.RelatedCourses = append(s.RelatedCourses, RelatedCourse{
			CourseCode:   str(e["courseCode"]),
			CourseName:   str(e["courseName"]),
			Credits:      integer(e["credits"]),
			Department:   str(e["department"]),
			RelationType: str(e["relationType"]),
		})
	}
	return NormalizeSyllabus(s), nil
}

// NormalizeSyllabus enforces the record invariants: lists are never nil,
// strings are trimmed, session plans always carry a topic and a method.
// Applying it twice changes nothing.
func NormalizeSyllabus(s Syllabus) Syllabus {
	s.CourseCode = strings.TrimSpace(s.CourseCode)
	s.CourseName = strings.TrimSpace(s.CourseName)
	s.Department = strings.TrimSpace(s.Department)
	s.Instructor = strings.TrimSpace(s.Instructor)
	s.AcademicYear = strings.TrimSpace(s.AcademicYear)
	s.Type = strings.TrimSpace(s.Type)
	s.Description = strings.TrimSpace(s.Description)
	if s.Credits < 0 {
		s.Credits = 0
	}

	target := make([]string, 0, len(s.Target))
	for _, t := range s.Target {
		if t = strings.TrimSpace(t); t != "" {
			target = append(target, t)
		}
	}
	s.Target = target

	plans := make([]SessionPlan, 0, len(s.SessionPlans))
	for _, p := range s.SessionPlans {
		p.Topic = strings.TrimSpace(p.Topic)
		p.TeachingMethod = strings.TrimSpace(p.TeachingMethod)
		if p.Topic == "" {
			p.Topic = PlaceholderTopic
		}
		if p.TeachingMethod == "" {
			p.TeachingMethod = PlaceholderMethod
		}
		if p.WeekNo < 0 {
			p.WeekNo = 0
		}
		plans = append(plans, p)
	}
	s.SessionPlans = plans

	assessments := make([]Assessment, 0, len(s.Assessments))
	for _, a := range s.Assessments {
		a.WeightPercent = finite(a.WeightPercent)
		a.Name = strings.TrimSpace(a.Name)
		a.Criteria = strings.TrimSpace(a.Criteria)
		assessments = append(assessments, a)
	}
	s.Assessments = assessments

	materials := make([]Material, 0, len(s.Materials))
	for _, m := range s.Materials {
		m.Title = strings.TrimSpace(m.Title)
		m.Author = strings.TrimSpace(m.Author)
		m.MaterialType = strings.TrimSpace(m.MaterialType)
		materials = append(materials, m)
	}
	s.Materials = materials

	related := make([]RelatedCourse, 0, len(s.RelatedCourses))
	for _, r := range s.RelatedCourses {
		r.CourseCode = strings.TrimSpace(r.CourseCode)
		r.CourseName = strings.TrimSpace(r.CourseName)
		r.Department = strings.TrimSpace(r.Department)
		r.RelationType = strings.TrimSpace(r.RelationType)
		related = append(related, r)
	}
	s.RelatedCourses = related
	return s
}

// ParseComparison decodes a comparison object leniently and normalizes it.
func ParseComparison(raw []byte) (StructuredComparison, error) {
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return NormalizeComparison(StructuredComparison{}), fmt.Errorf("decode comparison: %w", err)
	}
	if m == nil {
		return NormalizeComparison(StructuredComparison{}), fmt.Errorf("decode comparison: not an object")
	}
	rename(m, comparisonSynonyms)

	c := StructuredComparison{
		SimilarityPercent: percent(m["similarityPercent"]),
		Summary:           str(m["summary"]),
	}
	for _, e := range objects(m["details"]) {
		rename(e, changeSynonyms)
		c.Details = append(c.Details, FieldChange{
			Field:       str(e["field"]),
			ChangeKind:  ChangeKind(str(e["changeKind"])),
			OldValue:    str(e["oldValue"]),
			NewValue:    str(e["newValue"]),
			Explanation: str(e["explanation"]),
		})
	}
	return NormalizeComparison(c), nil
}

// NormalizeComparison clamps the percentage, canonicalizes change kinds and
// guarantees a non-nil details list. Idempotent.
func NormalizeComparison(c StructuredComparison) StructuredComparison {
	c.SimilarityPercent = min(max(c.SimilarityPercent, 0), 100)
	c.Summary = strings.TrimSpace(c.Summary)
	details := make([]FieldChange, 0, len(c.Details))
	for _, d := range c.Details {
		d.Field = strings.TrimSpace(d.Field)
		d.ChangeKind = CanonicalChangeKind(string(d.ChangeKind))
		d.Explanation = strings.TrimSpace(d.Explanation)
		details = append(details, d)
	}
	c.Details = details
	return c
}

// CanonicalChangeKind maps free-form kinds onto Changed, Added or Removed.
// Anything unrecognised is Changed.
func CanonicalChangeKind(s string) ChangeKind {
	k := strings.ToLower(strings.TrimSpace(s))
	switch {
	case strings.HasPrefix(k, "add"), strings.HasPrefix(k, "new"), strings.HasPrefix(k, "insert"), strings.Contains(k, "thêm"):
		return ChangeAdded
	case strings.HasPrefix(k, "remov"), strings.HasPrefix(k, "delet"), strings.Contains(k, "xóa"), strings.Contains(k, "xoá"):
		return ChangeRemoved
	default:
		return ChangeChanged
	}
}

// sanitizeAlignment coerces the usual model slips (numeric strings, "true",
// scores above 100) so the strict schema can accept the object.
func sanitizeAlignment(raw []byte) ([]byte, error) {
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, err
	}
	rename(m, map[string]string{"isAligned": "is_aligned", "aligned": "is_aligned", "reason": "reasoning"})
	if _, ok := m["score"]; ok {
		m["score"] = min(max(integer(m["score"]), 0), 100)
	}
	switch v := m["is_aligned"].(type) {
	case string:
		b, err := strconv.ParseBool(strings.TrimSpace(v))
		if err == nil {
			m["is_aligned"] = b
		}
	case float64:
		m["is_aligned"] = v != 0
	}
	if v, ok := m["reasoning"]; ok {
		m["reasoning"] = str(v)
	}
	return json.Marshal(m)
}

func str(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	default:
		b, err := json.Marshal(t)
		if err != nil {
			return fmt.Sprint(t)
		}
		return string(b)
	}
}

// number never returns NaN or ±Inf; those cannot be encoded as JSON.
func number(v any) float64 {
	switch t := v.(type) {
	case float64:
		return finite(t)
	case string:
		s := strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(t), "%"))
		s = strings.ReplaceAll(s, ",", ".")
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0
		}
		return finite(f)
	case bool:
		if t {
			return 1
		}
	}
	return 0
}

func finite(f float64) float64 {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return f
}

func integer(v any) int {
	f := math.Round(number(v))
	if f > math.MaxInt32 || f < math.MinInt32 {
		return 0
	}
	return int(f)
}

// percent accepts 0..100 or a 0..1 fraction.
func percent(v any) int {
	f := number(v)
	if f > 0 && f < 1 {
		f *= 100
	}
	return integer(f)
}

func list(v any) []any {
	switch t := v.(type) {
	case []any:
		return t
	case string:
		if strings.TrimSpace(t) == "" {
			return nil
		}
		return []any{t}
	}
	return nil
}

func objects(v any) []map[string]any {
	var out []map[string]any
	for _, e := range list(v) {
		switch t := e.(type) {
		case map[string]any:
			out = append(out, t)
		case string:
			// bare strings in an object list are the entry's main text
			out = append(out, map[string]any{"name": t, "title": t, "topic": t})
		}
	}
	return out
}
