package cache

const (
	// KeyPrefixFacts is the prefix for cached product facts keys
	KeyPrefixFacts = "pricewatch:facts:"
)

// FactsKey returns the Redis key for cached facts of a product URL
func FactsKey(url string) string {
	return KeyPrefixFacts + url
}
