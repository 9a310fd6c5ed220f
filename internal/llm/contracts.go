package llm

import "context"

// Prompt is one fully rendered request to a language model.
type Prompt struct {
	System string
	User   string
	// JSON asks the backend for a JSON-only response where it supports that.
	JSON bool
}

// Generator is the language-model capability the gateway drives. Each call
// blocks until the backend answers or ctx ends.
type Generator interface {
	Generate(ctx context.Context, p Prompt) (string, error)
	Name() string
}

// AlignmentResult is the CLO/PLO verdict. Score is 0..100.
type AlignmentResult struct {
	Score     int    `json:"score"`
	IsAligned bool   `json:"is_aligned"`
	Reasoning string `json:"reasoning"`
}

// Syllabus is the normalized structured record of a course description.
type Syllabus struct {
	CourseCode     string          `json:"courseCode"`
	CourseName     string          `json:"courseName"`
	Department     string          `json:"department"`
	Instructor     string          `json:"instructor"`
	Credits        int             `json:"credits"`
	AcademicYear   string          `json:"academicYear"`
	Type           string          `json:"type"`
	Description    string          `json:"description"`
	Target         []string        `json:"target"`
	SessionPlans   []SessionPlan   `json:"sessionPlans"`
	Assessments    []Assessment    `json:"assessments"`
	Materials      []Material      `json:"materials"`
	RelatedCourses []RelatedCourse `json:"relatedCourses"`
}

type SessionPlan struct {
	WeekNo         int    `json:"weekNo"`
	Topic          string `json:"topic"`
	TeachingMethod string `json:"teachingMethod"`
}

type Assessment struct {
	Name          string  `json:"name"`
	WeightPercent float64 `json:"weightPercent"`
	Criteria      string  `json:"criteria"`
}

type Material struct {
	Title        string `json:"title"`
	Author       string `json:"author"`
	MaterialType string `json:"materialType"`
}

type RelatedCourse struct {
	CourseCode   string `json:"courseCode"`
	CourseName   string `json:"courseName"`
	Credits      int    `json:"credits"`
	Department   string `json:"department"`
	RelationType string `json:"relationType"`
}

type ChangeKind string

const (
	ChangeChanged ChangeKind = "Changed"
	ChangeAdded   ChangeKind = "Added"
	ChangeRemoved ChangeKind = "Removed"
)

type FieldChange struct {
	Field       string     `json:"field"`
	ChangeKind  ChangeKind `json:"changeKind"`
	OldValue    string     `json:"oldValue"`
	NewValue    string     `json:"newValue"`
	Explanation string     `json:"explanation"`
}

// StructuredComparison describes how two syllabus records differ.
type StructuredComparison struct {
	SimilarityPercent int           `json:"similarityPercent"`
	Summary           string        `json:"summary"`
	Details           []FieldChange `json:"details"`
}
