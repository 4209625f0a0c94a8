package halio_test

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ejrsimr/hal/halio"
	"github.com/ejrsimr/hal/liftover"
)

func pslRecord() *liftover.Record {
	return &liftover.Record{
		Chrom:  "chr2",
		Start:  150,
		End:    220,
		Strand: liftover.StrandPlus,
		Blocks: []liftover.Block{{Start: 0, Length: 30}, {Start: 35, Length: 35}},
		PSL: &liftover.PSLInfo{
			QName:        "query1",
			QSize:        65,
			QStart:       0,
			QEnd:         65,
			QStrand:      liftover.StrandPlus,
			QBlockStarts: []int64{0, 30},
			TSize:        1000,
			Matches:      65,
			TNumInsert:   1,
			TBaseInsert:  5,
		},
	}
}

func TestWritePSLFieldCount(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, halio.WritePSL(&buf, []*liftover.Record{pslRecord()}, false))
	line := strings.TrimRight(buf.String(), "\n")
	fields := strings.Split(line, "\t")
	assert.Len(t, fields, 20)
}

func TestWritePSLWithNameAddsQNameField(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, halio.WritePSL(&buf, []*liftover.Record{pslRecord()}, true))
	line := strings.TrimRight(buf.String(), "\n")
	fields := strings.Split(line, "\t")
	assert.Len(t, fields, 21)
	assert.Equal(t, "query1", fields[9])
}

func TestWritePSLBlockFields(t *testing.T) {
	var buf bytes.Buffer
	r := pslRecord()
	require.NoError(t, halio.WritePSL(&buf, []*liftover.Record{r}, false))
	line := strings.TrimRight(buf.String(), "\n")
	fields := strings.Split(line, "\t")
	// 0:matches 1:misMatches 2:repMatches 3:nCount 4:qNumIns 5:qBaseIns
	// 6:tNumIns 7:tBaseIns 8:strand 9:qSize 10:qStart 11:qEnd 12:tName
	// 13:tSize 14:tStart 15:tEnd 16:blockCount 17:blockSizes 18:qStarts 19:tStarts
	assert.Equal(t, "65", fields[0])
	assert.Equal(t, "1", fields[6])
	assert.Equal(t, "5", fields[7])
	assert.Equal(t, "++", fields[8])
	assert.Equal(t, "chr2", fields[12])
	assert.Equal(t, "1000", fields[13])
	assert.Equal(t, "150", fields[14])
	assert.Equal(t, "220", fields[15])
	assert.Equal(t, "2", fields[16])
	assert.Equal(t, "30,35,", fields[17])
	assert.Equal(t, "0,30,", fields[18])
	assert.Equal(t, "150,185,", fields[19])
}

func TestWritePSLRequiresPSLInfo(t *testing.T) {
	r := &liftover.Record{Chrom: "chr1"}
	var buf bytes.Buffer
	assert.Error(t, halio.WritePSL(&buf, []*liftover.Record{r}, false))
}
