package service

import (
	"strings"
	"unicode"
)

// ChunkConfig controls how extracted document text is split before
// embedding. Sizes are in runes.
type ChunkConfig struct {
	MaxChars  int
	MinChars  int
	Overlap   int
	MaxChunks int
}

func DefaultChunkConfig() ChunkConfig {
	return ChunkConfig{
		MaxChars:  1200,
		MinChars:  400,
		Overlap:   200,
		MaxChunks: 500,
	}
}

// chunkText splits text into overlapping windows of at most MaxChars runes.
// A window ends at the last paragraph break, sentence end or space found
// after MinChars, in that order of preference, and is hard-cut otherwise.
func chunkText(text string, cfg ChunkConfig) []string {
	clean := strings.TrimSpace(text)
	if clean == "" {
		return nil
	}
	if cfg.MaxChars <= 0 {
		cfg = DefaultChunkConfig()
	}
	if cfg.Overlap >= cfg.MaxChars {
		cfg.Overlap = cfg.MaxChars / 4
	}

	runes := []rune(clean)
	if len(runes) <= cfg.MaxChars {
		return []string{clean}
	}

	var chunks []string
	start := 0
	for start < len(runes) {
		if cfg.MaxChunks > 0 && len(chunks) >= cfg.MaxChunks {
			break
		}

		end := start + cfg.MaxChars
		if end >= len(runes) {
			end = len(runes)
		} else {
			end = findCut(runes, start, end, cfg.MinChars)
		}

		if chunk := strings.TrimSpace(string(runes[start:end])); chunk != "" {
			chunks = append(chunks, chunk)
		}
		if end >= len(runes) {
			break
		}

		next := end - cfg.Overlap
		if next <= start {
			next = end
		}
		// Do not start a window mid-word.
		for next < end && !unicode.IsSpace(runes[next-1]) {
			next++
		}
		start = next
	}

	return chunks
}

func findCut(runes []rune, start, end, minChars int) int {
	floor := start + minChars
	if floor >= end {
		floor = start + 1
	}

	for i := end; i > floor; i-- {
		if runes[i-1] == '\n' && i >= 2 && runes[i-2] == '\n' {
			return i
		}
	}
	for i := end; i > floor; i-- {
		switch runes[i-1] {
		case '.', '!', '?':
			if i < len(runes) && unicode.IsSpace(runes[i]) {
				return i
			}
		}
	}
	for i := end; i > floor; i-- {
		if unicode.IsSpace(runes[i-1]) {
			return i
		}
	}
	return end
}
