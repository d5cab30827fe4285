package analyzer

import "regexp"

type techKeyword struct {
	name    string
	pattern *regexp.Regexp
}

// 框架 / 工具关键词词典，按输出顺序排列
var techKeywords = []techKeyword{
	{"React", regexp.MustCompile(`(?i)\breact(\.?js)?\b`)},
	{"Vue", regexp.MustCompile(`(?i)\bvue(\.?js)?\b`)},
	{"Angular", regexp.MustCompile(`(?i)\bangular\b`)},
	{"Svelte", regexp.MustCompile(`(?i)\bsvelte(kit)?\b`)},
	{"Next.js", regexp.MustCompile(`(?i)\bnext\.?js\b`)},
	{"Nuxt", regexp.MustCompile(`(?i)\bnuxt(\.?js)?\b`)},
	{"Express", regexp.MustCompile(`(?i)\bexpress(\.?js)?\b`)},
	{"FastAPI", regexp.MustCompile(`(?i)\bfastapi\b`)},
	{"Django", regexp.MustCompile(`(?i)\bdjango\b`)},
	{"Flask", regexp.MustCompile(`(?i)\bflask\b`)},
	{"Rails", regexp.MustCompile(`(?i)\b(ruby on )?rails\b`)},
	{"Laravel", regexp.MustCompile(`(?i)\blaravel\b`)},
	{"Spring", regexp.MustCompile(`(?i)\bspring( ?boot)?\b`)},
	{"Tailwind CSS", regexp.MustCompile(`(?i)\btailwind(css)?\b`)},
	{"Bootstrap", regexp.MustCompile(`(?i)\bbootstrap\b`)},
	{"TypeScript", regexp.MustCompile(`(?i)\btypescript\b`)},
	{"GraphQL", regexp.MustCompile(`(?i)\bgraphql\b`)},
	{"Docker", regexp.MustCompile(`(?i)\bdocker\b`)},
	{"Kubernetes", regexp.MustCompile(`(?i)\b(kubernetes|k8s)\b`)},
	{"PostgreSQL", regexp.MustCompile(`(?i)\bpostgres(ql)?\b`)},
	{"MongoDB", regexp.MustCompile(`(?i)\bmongo(db)?\b`)},
	{"Redis", regexp.MustCompile(`(?i)\bredis\b`)},
	{"Electron", regexp.MustCompile(`(?i)\belectron\b`)},
	{"Flutter", regexp.MustCompile(`(?i)\bflutter\b`)},
	{"Firebase", regexp.MustCompile(`(?i)\bfirebase\b`)},
	{"Supabase", regexp.MustCompile(`(?i)\bsupabase\b`)},
}

// MatchTechKeywords 返回文本中命中的框架 / 工具名称
func MatchTechKeywords(text string) []string {
	var found []string
	for _, kw := range techKeywords {
		if kw.pattern.MatchString(text) {
			found = append(found, kw.name)
		}
	}
	return found
}
