package core

import (
	"strings"
)

// ProgramFamilies maps two-digit program classification series to their family titles.
var ProgramFamilies = map[string]string{
	"01": "Agricultural/Animal/Plant/Veterinary Science and Related Fields",
	"03": "Natural Resources and Conservation",
	"04": "Architecture and Related Services",
	"05": "Area, Ethnic, Cultural, Gender, and Group Studies",
	"09": "Communication, Journalism, and Related Programs",
	"10": "Communications Technologies/Technicians and Support Services",
	"11": "Computer and Information Sciences and Support Services",
	"12": "Culinary, Entertainment, and Personal Services",
	"13": "Education",
	"14": "Engineering",
	"15": "Engineering/Engineering-Related Technologies/Technicians",
	"16": "Foreign Languages, Literatures, and Linguistics",
	"19": "Family and Consumer Sciences/Human Sciences",
	"22": "Legal Professions and Studies",
	"23": "English Language and Literature/Letters",
	"24": "Liberal Arts and Sciences, General Studies and Humanities",
	"25": "Library Science",
	"26": "Biological and Biomedical Sciences",
	"27": "Mathematics and Statistics",
	"29": "Military Technologies and Applied Sciences",
	"30": "Multi/Interdisciplinary Studies",
	"31": "Parks, Recreation, Leisure, Fitness, and Kinesiology",
	"38": "Philosophy and Religious Studies",
	"40": "Physical Sciences",
	"41": "Science Technologies/Technicians",
	"42": "Psychology",
	"43": "Homeland Security, Law Enforcement, Firefighting and Related Protective Services",
	"44": "Public Administration and Social Service Professions",
	"45": "Social Sciences",
	"46": "Construction Trades",
	"47": "Mechanic and Repair Technologies/Technicians",
	"48": "Precision Production",
	"49": "Transportation and Materials Moving",
	"50": "Visual and Performing Arts",
	"51": "Health Professions and Related Programs",
	"52": "Business, Management, Marketing, and Related Support Services",
	"54": "History",
}

// CareerGroups maps two-digit occupation major groups to their titles.
var CareerGroups = map[string]string{
	"11": "Management",
	"13": "Business and Financial Operations",
	"15": "Computer and Mathematical",
	"17": "Architecture and Engineering",
	"19": "Life, Physical, and Social Science",
	"21": "Community and Social Service",
	"23": "Legal",
	"25": "Educational Instruction and Library",
	"27": "Arts, Design, Entertainment, Sports, and Media",
	"29": "Healthcare Practitioners and Technical",
	"31": "Healthcare Support",
	"33": "Protective Service",
	"35": "Food Preparation and Serving Related",
	"37": "Building and Grounds Cleaning and Maintenance",
	"39": "Personal Care and Service",
	"41": "Sales and Related",
	"43": "Office and Administrative Support",
	"45": "Farming, Fishing, and Forestry",
	"47": "Construction and Extraction",
	"49": "Installation, Maintenance, and Repair",
	"51": "Production",
	"53": "Transportation and Material Moving",
	"55": "Military Specific",
}

// ProgramFamily returns the family title for a program code, or "" if unknown.
func ProgramFamily(code string) string {
	return ProgramFamilies[FamilyPrefix(code)]
}

// CareerGroup returns the major group title for an occupation code, or "" if unknown.
func CareerGroup(code string) string {
	return CareerGroups[FamilyPrefix(code)]
}

// TopicHint ties subject keywords to the program family and occupation groups
// they belong to.
type TopicHint struct {
	Name               string
	Keywords           []string
	ProgramFamily      string
	RepresentativeCode string
	CareerGroups       []string
}

// HasCareerGroup reports whether the occupation group is associated with the hint.
func (h TopicHint) HasCareerGroup(group string) bool {
	for _, g := range h.CareerGroups {
		if g == group {
			return true
		}
	}
	return false
}

// TopicHints is the static subject table used by the rule-based classifiers.
var TopicHints = []TopicHint{
	{
		Name:               "health",
		Keywords:           []string{"nursing", "nurse", "nurses", "medical", "health", "healthcare", "dental", "pharmacy", "paramedic", "emt", "radiology", "medicine"},
		ProgramFamily:      "51",
		RepresentativeCode: "51.3801",
		CareerGroups:       []string{"29", "31"},
	},
	{
		Name:               "computing",
		Keywords:           []string{"computer", "computers", "computing", "software", "programming", "cyber", "cybersecurity", "cyber security", "information technology", "data science", "coding", "networking"},
		ProgramFamily:      "11",
		RepresentativeCode: "11.0701",
		CareerGroups:       []string{"15"},
	},
	{
		Name:               "visual arts",
		Keywords:           []string{"photography", "photo", "photographer", "art", "arts", "design", "graphic", "film", "music", "theater", "theatre", "animation", "dance"},
		ProgramFamily:      "50",
		RepresentativeCode: "50.0605",
		CareerGroups:       []string{"27"},
	},
	{
		Name:               "business",
		Keywords:           []string{"business", "accounting", "marketing", "finance", "management", "entrepreneurship", "economics"},
		ProgramFamily:      "52",
		RepresentativeCode: "52.0201",
		CareerGroups:       []string{"11", "13", "41", "43"},
	},
	{
		Name:               "culinary",
		Keywords:           []string{"culinary", "cooking", "chef", "baking", "pastry", "hospitality"},
		ProgramFamily:      "12",
		RepresentativeCode: "12.0503",
		CareerGroups:       []string{"35"},
	},
	{
		Name:               "engineering",
		Keywords:           []string{"engineering", "engineer", "engineers"},
		ProgramFamily:      "14",
		RepresentativeCode: "14.0101",
		CareerGroups:       []string{"17"},
	},
	{
		Name:               "education",
		Keywords:           []string{"teaching", "teacher", "teachers", "education", "early childhood"},
		ProgramFamily:      "13",
		RepresentativeCode: "13.0101",
		CareerGroups:       []string{"25"},
	},
	{
		Name:               "mechanics",
		Keywords:           []string{"automotive", "mechanic", "mechanics", "diesel", "auto body", "aviation maintenance"},
		ProgramFamily:      "47",
		RepresentativeCode: "47.0604",
		CareerGroups:       []string{"49"},
	},
	{
		Name:               "construction",
		Keywords:           []string{"construction", "carpentry", "carpenter", "electrician", "electrical", "plumbing", "plumber", "masonry"},
		ProgramFamily:      "46",
		RepresentativeCode: "46.0201",
		CareerGroups:       []string{"47"},
	},
	{
		Name:               "protective services",
		Keywords:           []string{"police", "law enforcement", "fire science", "firefighter", "firefighting", "criminal justice"},
		ProgramFamily:      "43",
		RepresentativeCode: "43.0107",
		CareerGroups:       []string{"33"},
	},
	{
		Name:               "agriculture",
		Keywords:           []string{"agriculture", "farming", "agronomy", "horticulture", "aquaculture"},
		ProgramFamily:      "01",
		RepresentativeCode: "01.0000",
		CareerGroups:       []string{"45"},
	},
}

// MatchTopicHint finds the hint whose keywords best match the text.
// Keywords match on word boundaries of the normalized text.
func MatchTopicHint(text string) (TopicHint, bool) {
	padded := " " + strings.Join(strings.FieldsFunc(NormalizeText(text), isBoundary), " ") + " "
	best, bestHits := TopicHint{}, 0
	for _, hint := range TopicHints {
		hits := 0
		for _, kw := range hint.Keywords {
			if strings.Contains(padded, " "+kw+" ") {
				hits++
			}
		}
		if hits > bestHits {
			best, bestHits = hint, hits
		}
	}
	return best, bestHits > 0
}

// MatchQueryTopicHint matches the query first and falls back to the conversation.
func MatchQueryTopicHint(query string, history []Turn) (TopicHint, bool) {
	if hint, ok := MatchTopicHint(query); ok {
		return hint, true
	}
	for i := len(history) - 1; i >= 0; i-- {
		if history[i].Speaker != SpeakerTypeHuman {
			continue
		}
		if hint, ok := MatchTopicHint(history[i].Content); ok {
			return hint, true
		}
	}
	return TopicHint{}, false
}

func isBoundary(r rune) bool {
	return !(r >= 'a' && r <= 'z') && !(r >= '0' && r <= '9')
}
