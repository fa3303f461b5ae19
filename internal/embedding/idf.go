package embedding

// unknownIDF is the fallback inverse document frequency for terms not in
// the default table.
const unknownIDF = 2.0

func idf(term string) float64 {
	if v, ok := defaultIDF[term]; ok {
		return v
	}
	return unknownIDF
}

// defaultIDF is a fixed table covering common programming and platform
// terms. Common terms get low weights so that rarer, more specific terms
// dominate similarity. Values are hand-tuned, not corpus-derived.
var defaultIDF = map[string]float64{
	// ubiquitous programming vocabulary
	"code":     0.8,
	"function": 0.9,
	"file":     0.9,
	"test":     0.9,
	"error":    1.0,
	"type":     1.0,
	"value":    1.0,
	"data":     1.0,
	"string":   1.1,
	"module":   1.1,
	"class":    1.1,
	"method":   1.1,
	"variable": 1.2,
	"return":   1.2,
	"call":     1.2,
	"run":      1.2,
	"build":    1.2,
	"change":   1.2,
	"update":   1.2,
	"add":      1.2,
	"use":      1.0,
	"new":      1.0,
	"name":     1.1,
	"line":     1.2,
	"list":     1.2,
	"map":      1.3,
	"key":      1.3,
	"set":      1.2,
	"get":      1.2,

	// platform / infrastructure
	"api":        1.3,
	"server":     1.3,
	"client":     1.3,
	"database":   1.4,
	"db":         1.4,
	"query":      1.4,
	"sql":        1.5,
	"http":       1.4,
	"request":    1.3,
	"response":   1.3,
	"config":     1.4,
	"service":    1.3,
	"deploy":     1.5,
	"docker":     1.6,
	"kubernetes": 1.7,
	"cache":      1.5,
	"token":      1.5,
	"auth":       1.5,
	"session":    1.4,
	"log":        1.3,
	"logging":    1.4,
	"queue":      1.5,
	"schema":     1.5,
	"migration":  1.6,
	"endpoint":   1.5,
	"handler":    1.4,
	"middleware": 1.6,
	"framework":  1.4,
	"library":    1.4,
	"package":    1.3,
	"dependency": 1.5,
	"version":    1.3,
	"branch":     1.5,
	"commit":     1.5,
	"merge":      1.5,
	"git":        1.4,

	// languages and ecosystems
	"go":         1.4,
	"golang":     1.6,
	"python":     1.5,
	"javascript": 1.5,
	"typescript": 1.6,
	"rust":       1.6,
	"java":       1.5,
	"elixir":     1.8,
	"phoenix":    1.8,
	"react":      1.6,
	"node":       1.5,
	"json":       1.4,
	"yaml":       1.6,
	"proto":      1.7,
	"grpc":       1.7,

	// agent / memory domain
	"agent":    1.4,
	"memory":   1.4,
	"context":  1.3,
	"prompt":   1.5,
	"llm":      1.6,
	"model":    1.3,
	"decision": 1.5,
	"pattern":  1.4,
	"bug":      1.4,
	"fix":      1.3,
	"issue":    1.3,
	"failure":  1.5,
	"timeout":  1.6,
	"retry":    1.6,
	"user":     1.1,
	"tool":     1.3,
	"task":     1.2,
	"plan":     1.3,
}

// stopwords is the fixed stopword set dropped during tokenization.
var stopwords = map[string]bool{
	"a": true, "an": true, "the": true,
	"is": true, "are": true, "was": true, "were": true,
	"be": true, "been": true, "being": true, "am": true,
	"and": true, "or": true, "but": true, "nor": true,
	"if": true, "then": true, "else": true,
	"of": true, "to": true, "in": true, "on": true, "at": true,
	"by": true, "for": true, "with": true, "from": true, "as": true,
	"into": true, "onto": true, "over": true, "under": true,
	"this": true, "that": true, "these": true, "those": true,
	"it": true, "its": true, "itself": true,
	"i": true, "me": true, "my": true, "we": true, "us": true, "our": true,
	"you": true, "your": true, "he": true, "him": true, "his": true,
	"she": true, "her": true, "they": true, "them": true, "their": true,
	"not": true, "no": true, "yes": true,
	"do": true, "does": true, "did": true, "done": true,
	"have": true, "has": true, "had": true,
	"will": true, "would": true, "can": true, "could": true,
	"should": true, "shall": true, "may": true, "might": true, "must": true,
	"so": true, "than": true, "too": true, "very": true, "just": true,
	"about": true, "again": true, "further": true, "once": true,
	"here": true, "there": true, "when": true, "where": true,
	"why": true, "how": true, "what": true, "which": true,
	"who": true, "whom": true,
	"all": true, "any": true, "both": true, "each": true, "few": true,
	"more": true, "most": true, "other": true, "some": true, "such": true,
	"only": true, "own": true, "same": true,
	"up": true, "down": true, "out": true, "off": true,
}
