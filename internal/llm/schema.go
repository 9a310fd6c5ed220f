package llm

// AlignmentSchema is the strict shape of a CLO/PLO verdict.
func AlignmentSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"score":      map[string]any{"type": "integer", "minimum": 0, "maximum": 100},
			"is_aligned": map[string]any{"type": "boolean"},
			"reasoning":  map[string]any{"type": "string"},
		},
		"required": []string{"score", "is_aligned", "reasoning"},
	}
}

// SyllabusSchema describes a normalized Syllabus. Every list is required and
// assessment weights must lie in 0..100.
func SyllabusSchema() map[string]any {
	str := map[string]any{"type": "string"}
	nonNegInt := map[string]any{"type": "integer", "minimum": 0}
	objList := func(props map[string]any, required ...string) map[string]any {
		return map[string]any{
			"type": "array",
			"items": map[string]any{
				"type":       "object",
				"properties": props,
				"required":   required,
			},
		}
	}
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"courseCode":   str,
			"courseName":   str,
			"department":   str,
			"instructor":   str,
			"credits":      nonNegInt,
			"academicYear": str,
			"type":         str,
			"description":  str,
			"target":       map[string]any{"type": "array", "items": str},
			"sessionPlans": objList(map[string]any{
				"weekNo":         nonNegInt,
				"topic":          map[string]any{"type": "string", "minLength": 1},
				"teachingMethod": map[string]any{"type": "string", "minLength": 1},
			}, "weekNo", "topic", "teachingMethod"),
			"assessments": objList(map[string]any{
				"name":          str,
				"weightPercent": map[string]any{"type": "number", "minimum": 0, "maximum": 100},
				"criteria":      str,
			}, "name", "weightPercent", "criteria"),
			"materials": objList(map[string]any{
				"title":        str,
				"author":       str,
				"materialType": str,
			}, "title", "author", "materialType"),
			"relatedCourses": objList(map[string]any{
				"courseCode":   str,
				"courseName":   str,
				"credits":      nonNegInt,
				"department":   str,
				"relationType": str,
			}, "courseCode", "courseName", "credits", "department", "relationType"),
		},
		"required": []string{"target", "sessionPlans", "assessments", "materials", "relatedCourses"},
	}
}
