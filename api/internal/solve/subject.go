package solve

import "strings"

// Subject - закрытый набор предметов, для которых есть своя иконка.
type Subject int

const (
	SubjectOther Subject = iota
	SubjectMath
	SubjectPhysics
	SubjectChemistry
	SubjectRussian
)

var subjectNames = map[Subject]string{
	SubjectMath:      "Математика",
	SubjectPhysics:   "Физика",
	SubjectChemistry: "Химия",
	SubjectRussian:   "Русский язык",
	SubjectOther:     "Общее",
}

// ParseSubject сопоставляет название предмета из ответа сервиса с перечислением.
func ParseSubject(name string) Subject {
	n := strings.ToLower(strings.TrimSpace(name))
	for s, title := range subjectNames {
		if s != SubjectOther && strings.ToLower(title) == n {
			return s
		}
	}
	return SubjectOther
}

func (s Subject) String() string {
	if n, ok := subjectNames[s]; ok {
		return n
	}
	return subjectNames[SubjectOther]
}

// Icon - иконка для отображения предмета.
type Icon string

const (
	IconCalculator   Icon = "Calculator"
	IconAtom         Icon = "Atom"
	IconFlaskConical Icon = "FlaskConical"
	IconBookOpen     Icon = "BookOpen"
)

func (s Subject) Icon() Icon {
	switch s {
	case SubjectMath:
		return IconCalculator
	case SubjectPhysics:
		return IconAtom
	case SubjectChemistry:
		return IconFlaskConical
	default:
		return IconBookOpen
	}
}

// Emoji - текстовая замена иконки для чатов.
func (i Icon) Emoji() string {
	switch i {
	case IconCalculator:
		return "🧮"
	case IconAtom:
		return "⚛️"
	case IconFlaskConical:
		return "🧪"
	default:
		return "📖"
	}
}
