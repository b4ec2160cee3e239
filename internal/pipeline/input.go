package pipeline

import (
	"bufio"
	"encoding/json"
	"errors"
	"io"

	"github.com/rotisserie/eris"

	"github.com/sells-group/challenge-resolver/internal/model"
)

// ReadRecords reads video records given either as one JSON array or as a
// stream of JSON objects (JSON Lines, or a single pretty-printed object).
func ReadRecords(r io.Reader) ([]*model.VideoRecord, error) {
	br := bufio.NewReader(r)
	first, err := peekNonSpace(br)
	if errors.Is(err, io.EOF) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "pipeline: read input")
	}

	dec := json.NewDecoder(br)
	if first == '[' {
		var recs []*model.VideoRecord
		if err := dec.Decode(&recs); err != nil {
			return nil, eris.Wrap(err, "pipeline: decode record array")
		}
		return dropNil(recs), nil
	}

	var recs []*model.VideoRecord
	for {
		var rec model.VideoRecord
		err := dec.Decode(&rec)
		if errors.Is(err, io.EOF) {
			return recs, nil
		}
		if err != nil {
			return nil, eris.Wrapf(err, "pipeline: decode record %d", len(recs)+1)
		}
		recs = append(recs, &rec)
	}
}

func peekNonSpace(br *bufio.Reader) (byte, error) {
	for {
		b, err := br.ReadByte()
		if err != nil {
			return 0, err
		}
		switch b {
		case ' ', '\t', '\r', '\n':
			continue
		}
		return b, br.UnreadByte()
	}
}

func dropNil(recs []*model.VideoRecord) []*model.VideoRecord {
	out := recs[:0]
	for _, r := range recs {
		if r != nil {
			out = append(out, r)
		}
	}
	return out
}
