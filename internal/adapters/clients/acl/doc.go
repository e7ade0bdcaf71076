// Package acl is the anti-corruption layer between remote quote feeds and the domain.
//
// Feeds speak their own formats: a JSON array of posts, or an RSS/Atom document.
// Adapters in this package decode those formats into unexported DTOs, translate
// each record into a [domain.Quote], and convert every transport failure into a
// [domain.UnavailableError]. Nothing outside this package sees a feed DTO or a
// [clients] error.
//
// Record mapping is the same for both formats:
//
//   - text is the record title, falling back to its body, falling back to [PlaceholderText]
//   - category is always [RemoteCategory]
//
// Adapters:
//
//   - [JSONFeed] reads a JSON array of {title, body} objects
//   - [RSSFeed] reads RSS 2.0, Atom or JSON Feed documents through gofeed
//
// Both embed [BaseAdapter] and implement ports.QuoteFeed and ports.HealthChecker.
package acl
