// hal-liftover is the minimal driver binary wiring halstore -> halnav ->
// liftover over halio. CLI UX is an explicit external-collaborator concern,
// so flag parsing here is deliberately thin.
package main

import (
	"flag"
	"os"

	"github.com/grailbio/base/grail"
	"github.com/grailbio/base/log"

	"github.com/ejrsimr/hal/halio"
	"github.com/ejrsimr/hal/halnav"
	"github.com/ejrsimr/hal/liftover"
)

var (
	srcName          = flag.String("src", "", "Source genome name")
	tgtName          = flag.String("tgt", "", "Target genome name")
	bedType          = flag.Int("bedType", 3, "Input BED field count (3..12)")
	traverseDupes    = flag.Bool("traverseDupes", false, "Include paralogous projections in the output")
	outPSL           = flag.Bool("outPSL", false, "Emit structured-alignment (PSL-style) output instead of intervals")
	outPSLWithName   = flag.Bool("outPSLWithName", false, "With -outPSL, propagate the input record's name")
	coalescenceLimit = flag.String("coalescenceLimit", "", "Genome name bounding the tree walk; default is the LCA of -src and -tgt")
)

func usage() {
	os.Stderr.WriteString("Usage: hal-liftover [OPTIONS] halfile input.bed output.bed\n")
	flag.PrintDefaults()
}

func main() {
	flag.Usage = usage
	shutdown := grail.Init()
	defer shutdown()

	if flag.NArg() != 3 {
		usage()
		os.Exit(2)
	}
	halPath, inPath, outPath := flag.Arg(0), flag.Arg(1), flag.Arg(2)

	tree, store, err := loadTree(halPath)
	if err != nil {
		log.Fatalf("hal-liftover: %v", err)
	}
	nav := halnav.New(tree)

	srcGenome := nav.GetGenome(*srcName)
	if srcGenome == nil {
		log.Fatalf("hal-liftover: unknown source genome %q", *srcName)
	}
	tgtGenome := nav.GetGenome(*tgtName)
	if tgtGenome == nil {
		log.Fatalf("hal-liftover: unknown target genome %q", *tgtName)
	}
	var limit = nav.GetGenome(*coalescenceLimit) // nil if unset, which Convert resolves to the LCA

	in, err := os.Open(inPath)
	if err != nil {
		log.Fatalf("hal-liftover: %v", err)
	}
	records, err := halio.ReadBED(in, inPath, *bedType)
	in.Close()
	if err != nil {
		log.Fatalf("hal-liftover: %v", err)
	}

	engine := liftover.New(nav)
	out, err := engine.Convert(srcGenome, tgtGenome, records, liftover.Options{
		TraverseDupes:    *traverseDupes,
		OutPSL:           *outPSL,
		OutPSLWithName:   *outPSLWithName,
		CoalescenceLimit: limit,
		BedType:          *bedType,
	})
	if err != nil {
		// Abort without closing the store. It was opened read-only, so its
		// dirty bit is left as it was.
		log.Fatalf("hal-liftover: convert: %v", err)
	}

	outFile, err := os.Create(outPath)
	if err != nil {
		log.Fatalf("hal-liftover: %v", err)
	}
	if *outPSL {
		err = halio.WritePSL(outFile, out, *outPSLWithName)
	} else {
		err = halio.WriteBED(outFile, out)
	}
	if cerr := outFile.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		log.Fatalf("hal-liftover: %v", err)
	}

	if err := store.Close(); err != nil {
		log.Fatalf("hal-liftover: close %s: %v", halPath, err)
	}
}
