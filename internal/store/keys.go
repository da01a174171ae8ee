package store

// Key prefixes partition the shared store between cache domains. Kept in
// one place so List/purge operations and the cache configs agree.
const (
	// KeyPrefixRoute is the prefix for cached route resolutions
	KeyPrefixRoute = "proxy:route:"
	// KeyPrefixSnapshot is the prefix for last-known-good entry documents
	KeyPrefixSnapshot = "proxy:snapshot:"
	// KeyPrefixHash is the prefix for change-detection ledger hashes
	KeyPrefixHash = "proxy:hash:"
	// KeyPrefixSitemap is the prefix for cached sitemap documents
	KeyPrefixSitemap = "proxy:sitemap:"
	// KeyPrefixPluginMap is the prefix for cached plugin-map documents
	KeyPrefixPluginMap = "proxy:pluginmap:"
)
