package halseg

// revComp8Table maps each ASCII base to its complement; everything outside
// {A,C,G,T,a,c,g,t} maps to 'N'.
var revComp8Table = [256]byte{}

func init() {
	for i := range revComp8Table {
		revComp8Table[i] = 'N'
	}
	pairs := map[byte]byte{'A': 'T', 'T': 'A', 'C': 'G', 'G': 'C'}
	for from, to := range pairs {
		revComp8Table[from] = to
		revComp8Table[from+('a'-'A')] = to + ('a' - 'A')
	}
}

// reverseComplementInto writes the reverse complement of src into dst.
// len(dst) must equal len(src).
func reverseComplementInto(dst, src []byte) {
	n := len(src)
	for i := 0; i < n; i++ {
		dst[i] = revComp8Table[src[n-1-i]]
	}
}
