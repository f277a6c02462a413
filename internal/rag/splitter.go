package rag

import "strings"

// Splitter cuts cleaned text into overlapping chunks, preferring to
// break on paragraph boundaries, then lines, then sentences, then
// words, falling back to raw characters.
type Splitter struct {
	ChunkSize    int
	ChunkOverlap int
	separators   []string
}

func NewSplitter(chunkSize, chunkOverlap int) *Splitter {
	if chunkSize <= 0 {
		chunkSize = 500
	}
	if chunkOverlap < 0 || chunkOverlap >= chunkSize {
		chunkOverlap = chunkSize / 10
	}
	return &Splitter{
		ChunkSize:    chunkSize,
		ChunkOverlap: chunkOverlap,
		separators:   []string{"\n\n", "\n", ". ", " ", ""},
	}
}

// Split returns the chunks of text in document order. Empty or
// whitespace-only chunks are never returned.
func (s *Splitter) Split(text string) []string {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	return s.split(text, s.separators)
}

func (s *Splitter) split(text string, separators []string) []string {
	sep := separators[len(separators)-1]
	var rest []string
	for i, candidate := range separators {
		if candidate == "" || strings.Contains(text, candidate) {
			sep = candidate
			rest = separators[i+1:]
			break
		}
	}

	var pieces []string
	if sep == "" {
		for len(text) > s.ChunkSize {
			pieces = append(pieces, text[:s.ChunkSize])
			text = text[s.ChunkSize:]
		}
		pieces = append(pieces, text)
	} else {
		pieces = strings.Split(text, sep)
	}

	var chunks []string
	var pending []string
	for _, piece := range pieces {
		if len(piece) <= s.ChunkSize {
			pending = append(pending, piece)
			continue
		}
		chunks = append(chunks, s.merge(pending, sep)...)
		pending = nil
		if len(rest) == 0 {
			chunks = append(chunks, piece)
			continue
		}
		chunks = append(chunks, s.split(piece, rest)...)
	}
	chunks = append(chunks, s.merge(pending, sep)...)
	return chunks
}

// merge joins consecutive pieces back together up to ChunkSize,
// carrying ChunkOverlap worth of trailing pieces into the next chunk.
func (s *Splitter) merge(pieces []string, sep string) []string {
	var chunks []string
	var window []string
	total := 0
	sepLen := len(sep)

	flush := func() {
		if len(window) == 0 {
			return
		}
		chunk := strings.TrimSpace(strings.Join(window, sep))
		if chunk != "" {
			chunks = append(chunks, chunk)
		}
	}

	for _, piece := range pieces {
		pieceLen := len(piece)
		if total+pieceLen+sepLen*len(window) > s.ChunkSize && len(window) > 0 {
			flush()
			// Drop leading pieces until the retained tail fits the overlap.
			for total > s.ChunkOverlap && len(window) > 0 {
				total -= len(window[0]) + sepLen
				window = window[1:]
			}
		}
		window = append(window, piece)
		total += pieceLen
	}
	flush()
	return chunks
}
