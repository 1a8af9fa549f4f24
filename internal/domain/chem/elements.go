package chem

// symbolToNumber maps element symbols to atomic numbers for the elements the
// bundled force fields parametrize.
var symbolToNumber = map[string]int{
	"H": 1, "Li": 3, "B": 5, "C": 6, "N": 7, "O": 8, "F": 9,
	"Na": 11, "Mg": 12, "Si": 14, "P": 15, "S": 16, "Cl": 17,
	"K": 19, "Ca": 20, "Br": 35, "Rb": 37, "I": 53, "Cs": 55,
}

// numberToSymbol is the inverse of symbolToNumber.
var numberToSymbol = func() map[int]string {
	m := make(map[int]string, len(symbolToNumber))
	for s, n := range symbolToNumber {
		m[n] = s
	}
	return m
}()

// ElementNumber returns the atomic number for a symbol, 0 if unknown.
func ElementNumber(symbol string) int { return symbolToNumber[symbol] }

// ElementSymbol returns the symbol for an atomic number, "" if unknown.
func ElementSymbol(number int) string { return numberToSymbol[number] }
