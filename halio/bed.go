// Package halio is the convenience tab-separated BED/PSL codec that
// cmd/hal-liftover uses to drive liftover.Engine end to end. It
// owns none of the engine's decision logic; it only translates text lines
// to and from liftover.Record.
package halio

import (
	"bufio"
	"io"
	"strconv"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/pkg/errors"

	"github.com/ejrsimr/hal/liftover"
)

// splitFields scans line for up to len(fields) whitespace-delimited runs,
// storing each as a sub-slice of line in fields and returning the count
// found.
func splitFields(fields [][]byte, line []byte) int {
	end := 0
	n := len(line)
	for want := range fields {
		start := end
		for start < n && line[start] <= ' ' {
			start++
		}
		if start == n {
			return want
		}
		end = start
		for end < n && line[end] > ' ' {
			end++
		}
		fields[want] = line[start:end]
	}
	return len(fields)
}

// maybeGunzip wraps r in a gzip.Reader if name ends in ".gz".
func maybeGunzip(r io.Reader, name string) (io.Reader, error) {
	if !strings.HasSuffix(name, ".gz") {
		return r, nil
	}
	return gzip.NewReader(r)
}

// ReadBED parses bedType-column tab-separated BED records from r. name is
// used only to detect a ".gz" suffix for transparent decompression.
func ReadBED(r io.Reader, name string, bedType int) ([]*liftover.Record, error) {
	reader, err := maybeGunzip(r, name)
	if err != nil {
		return nil, errors.Wrap(err, "halio: gunzip")
	}
	scanner := bufio.NewScanner(reader)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)

	var out []*liftover.Record
	lineIdx := 0
	maxTokens := bedType
	if maxTokens < 3 {
		maxTokens = 3
	}
	tokens := make([][]byte, maxTokens)
	for scanner.Scan() {
		lineIdx++
		curLine := scanner.Bytes()
		if len(curLine) == 0 {
			continue
		}
		n := splitFields(tokens, curLine)
		if n < 3 {
			if n == 0 {
				continue
			}
			return nil, errors.Errorf("halio: line %d: fewer than 3 fields", lineIdx)
		}
		rec, err := parseBEDFields(tokens[:n], bedType)
		if err != nil {
			return nil, errors.Wrapf(err, "halio: line %d", lineIdx)
		}
		out = append(out, rec)
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrap(err, "halio: scan")
	}
	return out, nil
}

func parseBEDFields(tokens [][]byte, bedType int) (*liftover.Record, error) {
	rec := &liftover.Record{BedType: bedType}
	rec.Chrom = string(tokens[0])
	start, err := strconv.ParseInt(string(tokens[1]), 10, 64)
	if err != nil {
		return nil, errors.Wrap(err, "chromStart")
	}
	end, err := strconv.ParseInt(string(tokens[2]), 10, 64)
	if err != nil {
		return nil, errors.Wrap(err, "chromEnd")
	}
	rec.Start, rec.End = start, end

	if bedType >= 4 && len(tokens) > 3 {
		rec.Name = string(tokens[3])
	}
	if bedType >= 5 && len(tokens) > 4 {
		if score, err := strconv.Atoi(string(tokens[4])); err == nil {
			rec.Score = score
		}
	}
	if bedType >= 6 && len(tokens) > 5 && len(tokens[5]) == 1 {
		rec.Strand = liftover.Strand(tokens[5][0])
	}
	if bedType >= 8 && len(tokens) > 7 {
		rec.ThickStart, _ = strconv.ParseInt(string(tokens[6]), 10, 64)
		rec.ThickEnd, _ = strconv.ParseInt(string(tokens[7]), 10, 64)
	}
	if bedType >= 9 && len(tokens) > 8 {
		rec.ItemRGB = string(tokens[8])
	}
	if bedType >= 12 && len(tokens) > 11 {
		blockCount, err := strconv.Atoi(string(tokens[9]))
		if err != nil {
			return nil, errors.Wrap(err, "blockCount")
		}
		sizes := strings.Split(strings.TrimRight(string(tokens[10]), ","), ",")
		starts := strings.Split(strings.TrimRight(string(tokens[11]), ","), ",")
		if len(sizes) < blockCount || len(starts) < blockCount {
			return nil, errors.Errorf("blockCount %d disagrees with blockSizes/blockStarts", blockCount)
		}
		rec.Blocks = make([]liftover.Block, blockCount)
		for i := 0; i < blockCount; i++ {
			sz, err := strconv.ParseInt(sizes[i], 10, 64)
			if err != nil {
				return nil, errors.Wrapf(err, "blockSizes[%d]", i)
			}
			st, err := strconv.ParseInt(starts[i], 10, 64)
			if err != nil {
				return nil, errors.Wrapf(err, "blockStarts[%d]", i)
			}
			rec.Blocks[i] = liftover.Block{Start: st, Length: sz}
		}
	}
	return rec, nil
}

// WriteBED writes recs to w in the tab-separated form matching each
// record's BedType.
func WriteBED(w io.Writer, recs []*liftover.Record) error {
	bw := bufio.NewWriter(w)
	for _, r := range recs {
		if err := writeBEDLine(bw, r); err != nil {
			return errors.Wrap(err, "halio: write")
		}
	}
	return bw.Flush()
}

func writeBEDLine(bw *bufio.Writer, r *liftover.Record) error {
	fields := []string{r.Chrom, strconv.FormatInt(r.Start, 10), strconv.FormatInt(r.End, 10)}
	if r.BedType >= 4 {
		fields = append(fields, r.Name)
	}
	if r.BedType >= 5 {
		fields = append(fields, strconv.Itoa(r.Score))
	}
	if r.BedType >= 6 {
		strand := "."
		if r.Strand != liftover.StrandUnknown {
			strand = string(rune(r.Strand))
		}
		fields = append(fields, strand)
	}
	if r.BedType >= 8 {
		fields = append(fields, strconv.FormatInt(r.ThickStart, 10), strconv.FormatInt(r.ThickEnd, 10))
	}
	if r.BedType >= 9 {
		rgb := r.ItemRGB
		if rgb == "" {
			rgb = "0"
		}
		fields = append(fields, rgb)
	}
	if r.BedType >= 12 {
		sizes := make([]string, len(r.Blocks))
		starts := make([]string, len(r.Blocks))
		for i, b := range r.Blocks {
			sizes[i] = strconv.FormatInt(b.Length, 10)
			starts[i] = strconv.FormatInt(b.Start, 10)
		}
		fields = append(fields,
			strconv.Itoa(len(r.Blocks)),
			strings.Join(sizes, ",")+",",
			strings.Join(starts, ",")+",",
		)
	}
	_, err := bw.WriteString(strings.Join(fields, "\t") + "\n")
	return err
}
