package posematch

// Grade is a coarse alignment band used to colour feedback to the user
type Grade int

const (
	// GradeNone means no valid score is available
	GradeNone Grade = iota
	// GradeFar is a score below GradeCloseMin
	GradeFar
	// GradeClose is a score from GradeCloseMin up to GradeAlignedMin
	GradeClose
	// GradeAligned is a score of GradeAlignedMin or above
	GradeAligned
)

// score band boundaries
const (
	GradeCloseMin   = 0.7
	GradeAlignedMin = 0.95
)

// GradeFor returns the alignment band for a result
func GradeFor(r Result) Grade {

	if !r.OK {
		return GradeNone
	}

	switch {
	case r.Score < GradeCloseMin:
		return GradeFar
	case r.Score < GradeAlignedMin:
		return GradeClose
	default:
		return GradeAligned
	}
}

// String returns a readable name of the grade
func (g Grade) String() string {
	switch g {
	case GradeFar:
		return "far"
	case GradeClose:
		return "close"
	case GradeAligned:
		return "aligned"
	default:
		return "none"
	}
}
