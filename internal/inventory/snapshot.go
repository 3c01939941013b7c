// Package inventory fetches and interprets the account's inventory
// snapshots and computes the per-cycle diff against previously known
// assets.
package inventory

import (
	"encoding/json"
	"fmt"
	"sort"
)

// rawAsset and rawDescription mirror the snapshot source wire format.
// Numeric identifiers arrive as either strings or numbers depending on
// the endpoint revision, so they are decoded as json.Number-tolerant
// strings.
type rawAsset struct {
	AssetID    flexString `json:"assetid"`
	ClassID    flexString `json:"classid"`
	InstanceID flexString `json:"instanceid"`
	Amount     flexString `json:"amount"`
}

type rawDescription struct {
	ClassID        flexString `json:"classid"`
	InstanceID     flexString `json:"instanceid"`
	MarketHashName string     `json:"market_hash_name"`
	MarketName     string     `json:"market_name"`
	Name           string     `json:"name"`
}

type rawSnapshot struct {
	Success      int              `json:"success"`
	Assets       []rawAsset       `json:"assets"`
	Descriptions []rawDescription `json:"descriptions"`
}

// flexString decodes JSON strings and numbers alike into a string.
type flexString string

func (f *flexString) UnmarshalJSON(data []byte) error {
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = flexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*f = flexString(n.String())
	return nil
}

// AssetMeta describes one asset instance within a snapshot.
type AssetMeta struct {
	ItemKey string
	Amount  int
}

// Snapshot is the parsed inventory state of one catalog entry at one
// point in time. Every asset id maps to exactly one item key; assets
// without a matching description get a synthetic placeholder key.
type Snapshot struct {
	Assets map[string]AssetMeta
}

// AssetIDs returns the snapshot's asset id set.
func (s *Snapshot) AssetIDs() map[string]struct{} {
	ids := make(map[string]struct{}, len(s.Assets))
	for id := range s.Assets {
		ids[id] = struct{}{}
	}
	return ids
}

// ItemCounts recomputes the per-item quantity map from scratch. Counts
// are always derived from the current snapshot, never diffed
// incrementally.
func (s *Snapshot) ItemCounts() map[string]int {
	counts := make(map[string]int)
	for _, meta := range s.Assets {
		if meta.ItemKey == "" {
			continue
		}
		counts[meta.ItemKey] += meta.Amount
	}
	return counts
}

// ParseSnapshot decodes a snapshot source response body. The body must
// be a JSON object with a success flag; anything else indicates an
// invalid session (an HTML login page, "null", an error payload) and
// is a fatal per-entry condition.
func ParseSnapshot(body []byte) (*Snapshot, error) {
	trimmed := firstNonSpace(body)
	if trimmed != '{' {
		snippet := body
		if len(snippet) > 200 {
			snippet = snippet[:200]
		}
		return nil, fmt.Errorf("snapshot response is not a JSON object (session expired?): %q", snippet)
	}

	var raw rawSnapshot
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}
	if raw.Success != 1 {
		return nil, fmt.Errorf("snapshot source reported failure (success=%d)", raw.Success)
	}

	// (classid, instanceid) -> description
	type descKey struct{ class, instance string }
	descs := make(map[descKey]rawDescription, len(raw.Descriptions))
	for _, d := range raw.Descriptions {
		if d.ClassID == "" {
			continue
		}
		descs[descKey{string(d.ClassID), string(d.InstanceID)}] = d
	}

	snap := &Snapshot{Assets: make(map[string]AssetMeta, len(raw.Assets))}
	for _, a := range raw.Assets {
		id := string(a.AssetID)
		if id == "" {
			continue
		}
		amount := parseAmount(string(a.Amount))

		key := ""
		if d, ok := descs[descKey{string(a.ClassID), string(a.InstanceID)}]; ok {
			switch {
			case d.MarketHashName != "":
				key = d.MarketHashName
			case d.MarketName != "":
				key = d.MarketName
			case d.Name != "":
				key = d.Name
			}
		}
		if key == "" {
			key = fmt.Sprintf("assetid=%s", id)
		}

		snap.Assets[id] = AssetMeta{ItemKey: key, Amount: amount}
	}

	return snap, nil
}

func parseAmount(s string) int {
	n := 0
	for _, ch := range s {
		if ch < '0' || ch > '9' {
			return 1
		}
		n = n*10 + int(ch-'0')
	}
	if n <= 0 {
		return 1
	}
	return n
}

func firstNonSpace(body []byte) byte {
	for _, b := range body {
		switch b {
		case ' ', '\t', '\n', '\r':
			continue
		}
		return b
	}
	return 0
}

// Diff computes the pure two-way set difference between the previously
// known asset ids and the current snapshot. Added ids trigger pricing
// and event emission; removed ids are only logged, never subtracted
// from the additive value ledger. Both slices are sorted for stable
// iteration.
func Diff(previous map[string]struct{}, current *Snapshot) (added, removed []string) {
	for id := range current.Assets {
		if _, ok := previous[id]; !ok {
			added = append(added, id)
		}
	}
	for id := range previous {
		if _, ok := current.Assets[id]; !ok {
			removed = append(removed, id)
		}
	}
	sort.Strings(added)
	sort.Strings(removed)
	return added, removed
}
