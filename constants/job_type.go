package constants

import "strings"

type JobType string

const (
	JobTypeOCRExtract        JobType = "OCR_EXTRACT"
	JobTypeSummarize         JobType = "SUMMARIZE"
	JobTypeCompareText       JobType = "COMPARE_TEXT"
	JobTypeCompareStructured JobType = "COMPARE_STRUCTURED"
	JobTypeCheckAlignment    JobType = "CHECK_ALIGNMENT"
	JobTypeExtractStructured JobType = "EXTRACT_STRUCTURED"
)

var allJobTypes = []JobType{
	JobTypeOCRExtract,
	JobTypeSummarize,
	JobTypeCompareText,
	JobTypeCompareStructured,
	JobTypeCheckAlignment,
	JobTypeExtractStructured,
}

// AllJobTypes returns a copy of the supported job types.
func AllJobTypes() []JobType {
	out := make([]JobType, len(allJobTypes))
	copy(out, allJobTypes)
	return out
}

// ParseJobType accepts any casing and returns false for unknown values.
func ParseJobType(s string) (JobType, bool) {
	s = strings.ToUpper(strings.TrimSpace(s))
	for _, t := range allJobTypes {
		if string(t) == s {
			return t, true
		}
	}
	return "", false
}

func (t JobType) String() string { return string(t) }
