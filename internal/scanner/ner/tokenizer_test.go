package ner

import "testing"

func newTestTokenizer() *wordPieceTokenizer {
	vocab := map[string]int64{
		"[PAD]": 0,
		"[UNK]": 1,
		"[CLS]": 2,
		"[SEP]": 3,
		"john":  4,
		"works": 5,
		"at":    6,
		"ac":    7,
		"##me":  8,
	}
	return &wordPieceTokenizer{
		vocab:        vocab,
		lowerCase:    true,
		continuation: "##",
		clsID:        vocab["[CLS]"],
		sepID:        vocab["[SEP]"],
		padID:        vocab["[PAD]"],
		unkID:        vocab["[UNK]"],
	}
}

func TestEncodeWithOffsetsBracketsWithClsAndSep(t *testing.T) {
	tok := newTestTokenizer()
	ids, attn, offsets := tok.encodeWithOffsets("john works at acme", 16)

	if ids[0] != tok.clsID || offsets[0] != (tokenOffset{Start: -1, End: -1}) {
		t.Fatalf("expected leading [CLS] with no offset, got id=%d offset=%+v", ids[0], offsets[0])
	}
	var sepIdx = -1
	for i, id := range ids {
		if id == tok.sepID {
			sepIdx = i
			break
		}
	}
	if sepIdx == -1 {
		t.Fatalf("expected a [SEP] token in %v", ids)
	}
	if offsets[sepIdx] != (tokenOffset{Start: -1, End: -1}) {
		t.Fatalf("expected [SEP] to carry no offset, got %+v", offsets[sepIdx])
	}
	if len(attn) != 16 || len(ids) != 16 || len(offsets) != 16 {
		t.Fatalf("expected all outputs padded to seqLen 16, got %d/%d/%d", len(ids), len(attn), len(offsets))
	}
}

func TestEncodeWithOffsetsSplitsUnknownWordIntoPieces(t *testing.T) {
	tok := newTestTokenizer()
	_, _, offsets := tok.encodeWithOffsets("acme", 8)

	// "acme" should split into "ac" + "##me" given the test vocab, each
	// carrying its own slice of the original word's character range.
	var nonEmpty []tokenOffset
	for _, o := range offsets {
		if o.Start >= 0 {
			nonEmpty = append(nonEmpty, o)
		}
	}
	if len(nonEmpty) != 2 {
		t.Fatalf("expected 2 piece offsets for 'acme', got %+v", nonEmpty)
	}
	if nonEmpty[0].Start != 0 || nonEmpty[0].End != 2 {
		t.Errorf("first piece offset = %+v, want {0 2}", nonEmpty[0])
	}
	if nonEmpty[1].Start != 2 || nonEmpty[1].End != 4 {
		t.Errorf("second piece offset = %+v, want {2 4}", nonEmpty[1])
	}
}

func TestEncodeWithOffsetsFallsBackToUnkForUnmatchedWord(t *testing.T) {
	tok := newTestTokenizer()
	_, _, offsets := tok.encodeWithOffsets("xyzzy", 8)

	found := false
	for _, o := range offsets {
		if o.Start == 0 && o.End == 5 {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected a whole-word [UNK] offset spanning the unmatched word, got %+v", offsets)
	}
}

func TestSplitWordsWithOffsets(t *testing.T) {
	spans := splitWordsWithOffsets("  hello   world  ")
	if len(spans) != 2 {
		t.Fatalf("got %d spans, want 2: %+v", len(spans), spans)
	}
	if spans[0].Text != "hello" || spans[1].Text != "world" {
		t.Fatalf("got texts %q, %q", spans[0].Text, spans[1].Text)
	}
}
