package snapshot

import "encoding/json"

// BeaconKind discriminates the beacon entry variants.
type BeaconKind int

const (
	// BeaconFormatted is a plain pre-formatted text entry.
	BeaconFormatted BeaconKind = iota
	// BeaconTweets is the two-phase beacon shape with live citations.
	BeaconTweets
	// BeaconPosts is the legacy shape carrying topic posts.
	BeaconPosts
	// BeaconError marks an entry whose sole content is an error. It is
	// logged but never rendered.
	BeaconError
)

func (k BeaconKind) String() string {
	switch k {
	case BeaconFormatted:
		return "formatted"
	case BeaconTweets:
		return "tweets"
	case BeaconPosts:
		return "posts"
	case BeaconError:
		return "error"
	}
	return "?"
}

// Tweet is one live citation in a tweets-shaped beacon entry.
type Tweet struct {
	URL    string `json:"url"`
	Handle string `json:"handle"`
	Text   string `json:"text"`
}

// Post is one entry in a legacy posts-shaped beacon entry.
type Post struct {
	Topic   string `json:"topic"`
	Content string `json:"content"`
	Handle  string `json:"handle"`
}

// BeaconEntry is a tagged union over the shapes the beacon feed has used
// over time. Exactly the fields of the active variant are populated.
type BeaconEntry struct {
	Kind BeaconKind

	// BeaconFormatted / BeaconError.
	Text string

	// BeaconTweets.
	Phase      string
	Timestamp  string
	Tweets     []Tweet
	TotalCount int

	// BeaconPosts (shares Timestamp).
	Posts []Post
}

// beaconWire is the superset shape used to discriminate incoming entries.
type beaconWire struct {
	Error      string  `json:"error"`
	Tweets     []Tweet `json:"tweets"`
	Posts      []Post  `json:"posts"`
	Text       string  `json:"text"`
	Formatted  string  `json:"formatted"`
	Phase      string  `json:"phase"`
	Timestamp  string  `json:"timestamp"`
	TotalCount int     `json:"total_count"`
}

// UnmarshalJSON discriminates an incoming entry. A bare JSON string is a
// formatted entry; objects are classified error > tweets > posts > text.
// Anything unrecognizable is demoted to an error entry rather than rejected.
func (e *BeaconEntry) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*e = BeaconEntry{Kind: BeaconFormatted, Text: s}
		return nil
	}

	var w beaconWire
	if err := json.Unmarshal(data, &w); err != nil {
		*e = BeaconEntry{Kind: BeaconError, Text: "unparseable beacon entry"}
		return nil
	}

	switch {
	case w.Error != "":
		*e = BeaconEntry{Kind: BeaconError, Text: w.Error}
	case len(w.Tweets) > 0:
		*e = BeaconEntry{
			Kind:       BeaconTweets,
			Phase:      w.Phase,
			Timestamp:  w.Timestamp,
			Tweets:     w.Tweets,
			TotalCount: w.TotalCount,
		}
	case len(w.Posts) > 0:
		*e = BeaconEntry{Kind: BeaconPosts, Timestamp: w.Timestamp, Posts: w.Posts}
	case w.Text != "":
		*e = BeaconEntry{Kind: BeaconFormatted, Text: w.Text}
	case w.Formatted != "":
		*e = BeaconEntry{Kind: BeaconFormatted, Text: w.Formatted}
	default:
		*e = BeaconEntry{Kind: BeaconError, Text: "empty beacon entry"}
	}
	return nil
}
