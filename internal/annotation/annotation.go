package annotation

// Label is one of the fixed CV entity categories the model is trained on.
type Label string

const (
	LabelName         Label = "NAME"
	LabelEmail        Label = "EMAIL"
	LabelPhone        Label = "PHONE"
	LabelInstitution  Label = "INSTITUTION"
	LabelDegree       Label = "DEGREE"
	LabelOrganization Label = "ORGANIZATION"
	LabelRole         Label = "ROLE"
	LabelDuration     Label = "DURATION"
	LabelDate         Label = "DATE"
	LabelSkill        Label = "SKILL"
	LabelLanguage     Label = "LANGUAGE"
	LabelAchievement  Label = "ACHIEVEMENT"
)

// Taxonomy lists every label the pipeline accepts, in canonical order.
var Taxonomy = []Label{
	LabelName,
	LabelEmail,
	LabelPhone,
	LabelInstitution,
	LabelDegree,
	LabelOrganization,
	LabelRole,
	LabelDuration,
	LabelDate,
	LabelSkill,
	LabelLanguage,
	LabelAchievement,
}

var taxonomySet = func() map[Label]struct{} {
	set := make(map[Label]struct{}, len(Taxonomy))
	for _, label := range Taxonomy {
		set[label] = struct{}{}
	}
	return set
}()

// Valid reports whether the label belongs to the fixed taxonomy.
func (l Label) Valid() bool {
	_, ok := taxonomySet[l]
	return ok
}

// Span is a labelled byte range inside a document text.
type Span struct {
	Start int
	End   int
	Label Label
}

// Record is a single annotated document.
type Record struct {
	ID    string
	Text  string
	Spans []Span
}
