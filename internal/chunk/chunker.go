// Package chunk splits extracted text into overlapping pieces sized
// for embedding.
package chunk

import "strings"

// Chunker splits text into pieces. An empty result means the text had
// no usable content.
type Chunker interface {
	Chunk(text string) []string
}

// Words splits on whitespace into windows of Size words with Overlap
// words shared between consecutive windows.
type Words struct {
	Size    int
	Overlap int
}

// NewWords returns a word chunker, clamping nonsensical parameters.
func NewWords(size, overlap int) Words {
	if size <= 0 {
		size = 512
	}
	if overlap < 0 {
		overlap = 0
	}
	if overlap >= size {
		overlap = size / 4
	}
	return Words{Size: size, Overlap: overlap}
}

func (w Words) Chunk(text string) []string {
	words := strings.Fields(text)
	if len(words) == 0 {
		return nil
	}
	if len(words) <= w.Size {
		return []string{strings.Join(words, " ")}
	}
	step := w.Size - w.Overlap
	var chunks []string
	for start := 0; start < len(words); start += step {
		end := start + w.Size
		if end > len(words) {
			end = len(words)
		}
		chunks = append(chunks, strings.Join(words[start:end], " "))
		if end == len(words) {
			break
		}
	}
	return chunks
}

// Paragraphs splits on blank lines, merging consecutive paragraphs
// until MaxLen characters. A single oversized paragraph becomes its
// own chunk rather than being split mid-sentence.
type Paragraphs struct {
	MaxLen int
}

// NewParagraphs returns a paragraph chunker with the given character
// budget per chunk.
func NewParagraphs(maxLen int) Paragraphs {
	if maxLen <= 0 {
		maxLen = 2000
	}
	return Paragraphs{MaxLen: maxLen}
}

func (p Paragraphs) Chunk(text string) []string {
	paras := splitParagraphs(text)
	if len(paras) == 0 {
		return nil
	}
	var chunks []string
	var current strings.Builder
	for _, para := range paras {
		if current.Len() > 0 && current.Len()+len(para)+2 > p.MaxLen {
			chunks = append(chunks, current.String())
			current.Reset()
		}
		if current.Len() > 0 {
			current.WriteString("\n\n")
		}
		current.WriteString(para)
	}
	if current.Len() > 0 {
		chunks = append(chunks, current.String())
	}
	return chunks
}

func splitParagraphs(text string) []string {
	var paras []string
	for _, block := range strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n\n") {
		block = strings.TrimSpace(block)
		if block != "" {
			paras = append(paras, block)
		}
	}
	return paras
}
