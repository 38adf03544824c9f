package planner

import (
	"strings"

	"github.com/ppiankov/grantscout/internal/model"
)

type term struct {
	en, local string
}

// translations is ordered: partial matching replaces the first listed term found
var translations = map[string][]term{
	"Japanese": {
		{"documentary grant", "ドキュメンタリー 助成金"},
		{"documentary film grant", "ドキュメンタリー映画 助成金"},
		{"documentary film fund", "ドキュメンタリー映画 基金"},
		{"film fund", "映画基金"},
		{"film grant", "映画助成金"},
		{"documentary funding", "ドキュメンタリー資金"},
		{"open call", "公募"},
		{"grant application", "助成金申請"},
		{"civic technology", "シビックテック"},
		{"democracy", "民主主義"},
		{"political participation", "政治参加"},
		{"digital democracy", "デジタル民主主義"},
		{"nonprofit organization", "NPO法人"},
		{"foundation", "財団"},
		{"cultural fund", "文化基金"},
		{"arts grant", "芸術助成"},
	},
	"Mandarin": {
		{"documentary grant", "紀錄片補助"},
		{"documentary film grant", "紀錄片電影補助金"},
		{"documentary film fund", "紀錄片基金"},
		{"film fund", "電影基金"},
		{"film grant", "電影補助金"},
		{"documentary funding", "紀錄片資金"},
		{"open call", "公開徵件"},
		{"grant application", "補助申請"},
		{"indigenous rights", "原住民權利"},
		{"environmental", "環境"},
		{"river rights", "河流權利"},
		{"water conservation", "水資源保護"},
		{"nonprofit organization", "非營利組織"},
		{"foundation", "基金會"},
		{"cultural fund", "文化基金"},
		{"taiwan film", "台灣電影"},
	},
	"Spanish": {
		{"documentary grant", "subvención documental"},
		{"documentary film grant", "beca para documental"},
		{"documentary film fund", "fondo de cine documental"},
		{"film fund", "fondo de cine"},
		{"film grant", "ayuda cinematográfica"},
		{"documentary funding", "financiación documental"},
		{"open call", "convocatoria abierta"},
		{"grant application", "solicitud de subvención"},
		{"environmental justice", "justicia ambiental"},
		{"water rights", "derechos del agua"},
		{"climate", "clima"},
		{"river", "río"},
		{"nonprofit organization", "organización sin fines de lucro"},
		{"foundation", "fundación"},
		{"cultural fund", "fondo cultural"},
		{"activism", "activismo"},
	},
	"German": {
		{"documentary grant", "Dokumentarfilm Förderung"},
		{"documentary film grant", "Dokumentarfilm Förderung"},
		{"documentary film fund", "Dokumentarfilm Fonds"},
		{"film fund", "Filmförderung"},
		{"film grant", "Filmförderung"},
		{"documentary funding", "Dokumentarfilm Finanzierung"},
		{"open call", "offene Ausschreibung"},
		{"grant application", "Förderantrag"},
		{"nonprofit organization", "gemeinnützige Organisation"},
		{"foundation", "Stiftung"},
		{"cultural fund", "Kulturfonds"},
	},
}

var locationLanguages = map[string]string{
	"Japan":           "Japanese",
	"Tokyo":           "Japanese",
	"Taiwan":          "Mandarin",
	"Southern Taiwan": "Mandarin",
	"Spain":           "Spanish",
	"Talavera":        "Spanish",
	"Germany":         "German",
	"European Union":  "German",
}

// Languages returns the project's explicit search languages, or English plus
// languages inferred from segment primary locations.
func Languages(project model.Project) []string {
	if len(project.SearchPreferences.Languages) > 0 {
		return project.SearchPreferences.Languages
	}

	langs := []string{"English"}
	seen := map[string]bool{"English": true}
	for _, s := range project.Segments {
		for _, loc := range s.PrimaryLocations {
			if lang, ok := locationLanguages[model.Label(loc)]; ok && !seen[lang] {
				seen[lang] = true
				langs = append(langs, lang)
			}
		}
	}
	return langs
}

// Translate renders query in language through the term dictionary.
// An exact match wins; otherwise the first dictionary term contained in the
// query is replaced. Returns false when nothing matches.
func Translate(query, language string) (string, bool) {
	terms, ok := translations[language]
	if !ok {
		return "", false
	}

	lower := strings.ToLower(query)
	for _, t := range terms {
		if lower == t.en {
			return t.local, true
		}
	}
	for _, t := range terms {
		if strings.Contains(lower, t.en) {
			return strings.Replace(lower, t.en, t.local, 1), true
		}
	}
	return "", false
}

// addMultilingual appends translations of up to perLanguage short queries
// (four words or fewer) for each project language with a dictionary.
func addMultilingual(queries []string, project model.Project, perLanguage int) []string {
	var short []string
	for _, q := range queries {
		if len(strings.Fields(q)) <= 4 {
			short = append(short, q)
		}
		if len(short) == perLanguage {
			break
		}
	}

	seen := make(map[string]bool, len(queries))
	for _, q := range queries {
		seen[q] = true
	}

	out := append([]string{}, queries...)
	for _, lang := range Languages(project) {
		if _, ok := translations[lang]; !ok {
			continue
		}
		for _, q := range short {
			if tr, ok := Translate(q, lang); ok && !seen[tr] {
				seen[tr] = true
				out = append(out, tr)
			}
		}
	}
	return out
}
