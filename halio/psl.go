package halio

import (
	"bufio"
	"io"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/ejrsimr/hal/liftover"
)

// WritePSL writes recs as tab-separated structured-alignment records: 21
// fields when withName is set, 20 otherwise, since the qName field is
// emitted only with withName.
func WritePSL(w io.Writer, recs []*liftover.Record, withName bool) error {
	bw := bufio.NewWriter(w)
	for _, r := range recs {
		if err := writePSLLine(bw, r, withName); err != nil {
			return errors.Wrap(err, "halio: write psl")
		}
	}
	return bw.Flush()
}

func writePSLLine(bw *bufio.Writer, r *liftover.Record, withName bool) error {
	p := r.PSL
	if p == nil {
		return errors.Errorf("halio: record for %s has no PSL info", r.Chrom)
	}
	strand := string(rune(p.QStrand))
	if r.Strand != liftover.StrandUnknown {
		strand += string(rune(r.Strand))
	}

	qStarts := make([]string, len(p.QBlockStarts))
	tStarts := make([]string, len(r.Blocks))
	sizes := make([]string, len(r.Blocks))
	for i, b := range r.Blocks {
		sizes[i] = strconv.FormatInt(b.Length, 10)
		tStarts[i] = strconv.FormatInt(r.Start+b.Start, 10)
	}
	for i, q := range p.QBlockStarts {
		qStarts[i] = strconv.FormatInt(q, 10)
	}

	fields := []string{
		strconv.FormatInt(p.Matches, 10),
		strconv.FormatInt(p.MisMatches, 10),
		strconv.FormatInt(p.RepMatches, 10),
		strconv.FormatInt(p.NCount, 10),
		strconv.FormatInt(p.QNumInsert, 10),
		strconv.FormatInt(p.QBaseInsert, 10),
		strconv.FormatInt(p.TNumInsert, 10),
		strconv.FormatInt(p.TBaseInsert, 10),
		strand,
	}
	if withName {
		fields = append(fields, p.QName)
	}
	fields = append(fields,
		strconv.FormatInt(p.QSize, 10),
		strconv.FormatInt(p.QStart, 10),
		strconv.FormatInt(p.QEnd, 10),
		r.Chrom,
		strconv.FormatInt(p.TSize, 10),
		strconv.FormatInt(r.Start, 10),
		strconv.FormatInt(r.End, 10),
		strconv.Itoa(len(r.Blocks)),
		strings.Join(sizes, ",")+",",
		strings.Join(qStarts, ",")+",",
		strings.Join(tStarts, ",")+",",
	)
	_, err := bw.WriteString(strings.Join(fields, "\t") + "\n")
	return err
}
