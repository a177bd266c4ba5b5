package cryptotax

import "strings"

// Exchange-specific aliases for assets the exchange reports under more than
// one code. Kraken prefixes legacy assets with X (crypto) or Z (fiat) in some
// endpoints and not in others.
var assetAliases = map[string]string{
	"EUR":  "ZEUR",
	"USD":  "ZUSD",
	"XBT":  "XXBT",
	"BTC":  "XXBT",
	"ETH":  "XETH",
	"ETH2": "XETH",
	"XRP":  "XXRP",
	"XLM":  "XXLM",
	"LTC":  "XLTC",
	"DOGE": "XXDG",
}

// knownAssets lists the canonical symbols this normalizer has vetted.
// Codes outside this set still normalize, but callers are told to review them.
var knownAssets = map[string]struct{}{
	"ZEUR": {}, "ZUSD": {}, "XXBT": {}, "XETH": {}, "XXRP": {}, "XXLM": {},
	"XLTC": {}, "XXDG": {}, "SOL": {}, "DOT": {}, "ADA": {}, "ATOM": {},
	"KSM": {}, "MATIC": {}, "POL": {}, "AAVE": {}, "UNI": {}, "ALGO": {},
	"EOS": {}, "ENA": {}, "ETHW": {}, "LUNA": {}, "LUNA2": {}, "1INCH": {},
	"UST": {}, "KFEE": {}, "NFT": {},
}

// Normalize canonicalizes an exchange-specific asset code into a stable symbol.
//
// It is a pure total function: every raw code maps to exactly one symbol.
// Staked variants ("DOT.S", "ETH2.S"), opt-in earn variants (".F", ".M", ".B")
// and the "21" bonus-program suffix all collapse onto the underlying asset.
// Unknown codes pass through unchanged with known=false so callers can flag
// them for review instead of dropping them.
func Normalize(raw string) (symbol string, known bool) {
	s := strings.ToUpper(strings.TrimSpace(raw))
	// Staking and earn program variants are suffixed with a dot: "SOL.S".
	if i := strings.Index(s, "."); i > 0 {
		s = s[:i]
	}
	// The bonus program appends a literal "21": "SOL21".
	if i := strings.Index(s, "21"); i > 0 {
		s = s[:i]
	}
	if alias, ok := assetAliases[s]; ok {
		s = alias
	}
	_, known = knownAssets[s]
	return s, known
}

// IsFiat reports whether the canonical symbol is the reporting fiat currency.
func IsFiat(symbol string) bool { return symbol == "ZEUR" }
