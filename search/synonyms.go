package search

import "github.com/poiesic/pathways/core"

// synonyms is the local fallback table of related terms, keyed by
// normalized topic. It is consulted when the oracle returns too few terms.
var synonyms = map[string][]string{
	"nursing":                {"registered nurse", "rn", "lpn", "practical nursing", "nurse", "patient care", "health care", "bsn"},
	"nurse":                  {"nursing", "registered nurse", "rn", "lpn", "practical nursing", "patient care"},
	"computer science":       {"computing", "programming", "software", "software development", "information technology", "computer programming", "coding"},
	"programming":            {"software development", "computer programming", "coding", "software", "computer science"},
	"cybersecurity":          {"cyber security", "information security", "network security", "infosec", "security", "digital forensics"},
	"cyber security":         {"cybersecurity", "information security", "network security", "infosec", "security", "digital forensics"},
	"information technology": {"it", "computer support", "networking", "network administration", "computer information systems", "help desk"},
	"data science":           {"data analytics", "analytics", "statistics", "machine learning", "data analysis", "business intelligence"},
	"photography":            {"photo", "photographic", "digital imaging", "commercial photography", "photojournalism", "visual arts", "camera"},
	"graphic design":         {"visual communication", "digital design", "illustration", "web design", "commercial art", "design"},
	"business":               {"business administration", "management", "entrepreneurship", "accounting", "marketing", "finance", "mba"},
	"accounting":             {"bookkeeping", "accountancy", "cpa", "auditing", "finance", "tax"},
	"culinary":               {"culinary arts", "cooking", "chef", "baking", "pastry", "food service", "hospitality"},
	"cooking":                {"culinary", "culinary arts", "chef", "baking", "food preparation"},
	"engineering":            {"engineer", "mechanical engineering", "electrical engineering", "civil engineering", "engineering technology", "pre-engineering"},
	"education":              {"teaching", "teacher", "early childhood", "elementary education", "instruction", "teacher education"},
	"teaching":               {"education", "teacher", "instruction", "early childhood", "teacher education"},
	"automotive":             {"auto mechanics", "automotive technology", "auto", "vehicle", "mechanic", "collision repair"},
	"welding":                {"welder", "fabrication", "metal fabrication", "welding technology", "metalworking"},
	"construction":           {"carpentry", "building trades", "electrician", "plumbing", "construction management", "hvac"},
	"agriculture":            {"farming", "agribusiness", "horticulture", "agronomy", "animal science", "crop"},
	"law enforcement":        {"police", "criminal justice", "corrections", "public safety", "policing"},
	"criminal justice":       {"law enforcement", "police", "corrections", "criminology", "forensics"},
	"psychology":             {"counseling", "behavioral science", "mental health", "human services", "social work"},
	"medical assistant":      {"medical assisting", "clinical assistant", "health care", "phlebotomy", "medical office"},
	"dental":                 {"dental hygiene", "dental assisting", "dentistry", "oral health"},
	"music":                  {"music performance", "audio", "sound engineering", "music production", "recording arts"},
	"art":                    {"fine arts", "studio art", "visual arts", "painting", "drawing", "illustration"},
}

// localSynonyms returns fallback related terms for a topic: the entry for the
// whole normalized topic first, then entries for each of its words.
func localSynonyms(topic string) []string {
	key := core.NormalizeText(topic)
	var out []string
	out = append(out, synonyms[key]...)
	for _, w := range splitWords(key) {
		if w == key {
			continue
		}
		out = append(out, synonyms[w]...)
	}
	return out
}
