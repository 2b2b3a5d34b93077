package chunker

// Profile holds the tunable size parameters for one chunking strategy.
// The defaults below are load-bearing for behavioral compatibility
// with previously indexed documents; override them via config only
// with a re-index.
type Profile struct {
	// ChunkSize is the token window width for text chunks.
	ChunkSize int `yaml:"chunk_size"`
	// Overlap is the token overlap between consecutive windows. Must
	// be smaller than ChunkSize; it is clamped if not.
	Overlap int `yaml:"overlap"`
	// MinChunk is the minimum token count for an emitted window.
	// Windows below it are merged into their predecessor or dropped.
	MinChunk int `yaml:"min_chunk"`
	// HeadingMinWords is the word count a heading needs to open a
	// section (or, in the generic strategy, to be emitted standalone).
	HeadingMinWords int `yaml:"heading_min_words"`
	// TableBudget is the token budget for accumulated table chunks.
	TableBudget int `yaml:"table_budget"`
}

// HealthcareProfile returns the sizes tuned for medical precision:
// smaller windows, larger overlap for continuity, single-word section
// headings, and room for wide clinical tables.
func HealthcareProfile() Profile {
	return Profile{
		ChunkSize:       384,
		Overlap:         64,
		MinChunk:        50,
		HeadingMinWords: 1,
		TableBudget:     768,
	}
}

// GenericProfile returns the sizes used for non-clinical documents.
func GenericProfile() Profile {
	return Profile{
		ChunkSize:       512,
		Overlap:         50,
		MinChunk:        100,
		HeadingMinWords: 15,
		TableBudget:     0,
	}
}

// withDefaults fills zero fields from the given base profile.
func (p Profile) withDefaults(base Profile) Profile {
	if p.ChunkSize <= 0 {
		p.ChunkSize = base.ChunkSize
	}
	if p.Overlap <= 0 {
		p.Overlap = base.Overlap
	}
	if p.MinChunk <= 0 {
		p.MinChunk = base.MinChunk
	}
	if p.HeadingMinWords <= 0 {
		p.HeadingMinWords = base.HeadingMinWords
	}
	if p.TableBudget <= 0 {
		p.TableBudget = base.TableBudget
	}
	return p
}
