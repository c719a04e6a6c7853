package atc

// fallbackCodes is used when the register cannot be reached or lists no
// codes. Keys are matched exactly.
var fallbackCodes = map[string]string{
	"Abakavir":          "J05A F06, J05A R02, J05A R13",
	"Acetylcystein":     "R05C B01, V03A B23",
	"Acetylsalisylsyre": "B01A C06, B01A C30, N02B A01, N02B E51",
	"Acitretin":         "D05B B02",
	"Cytarabin":         "L01B C01, L01X Y01",
	"Oksytocin":         "H01B B02",
	"Caspofungin":       "J02A X04",
	"Cetylpyridin":      "D08A J03",
	"Lanreotid":         "H01C B03",
	"Litium":            "N05A N01",
	"Xylometazolin":     "R01A A07",
	"Zanamivir":         "J05A H01",
	"Ziprasidon":        "N05A E04",
	"Nafarelin":         "H01C C01",
	"Vankomycin":        "J01X A01",
	"Verapamil":         "C08D A01",
	"Vitamin D":         "A11C C05",
	"Skopolamin":        "A03B A01, S01F A01",
	"Mykofenolat":       "L04A A06",
	"Vitamin K":         "B02B A01",
}

// FallbackCodes returns the static ATC codes for substance, if known
func FallbackCodes(substance string) (string, bool) {
	codes, ok := fallbackCodes[substance]
	return codes, ok
}
