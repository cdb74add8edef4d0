package casclient

// Identity is the response of the `id` action, used as a readiness probe.
type Identity struct {
	ID        string   `json:"ID"`
	AgentVersion string `json:"AgentVersion"`
	Addresses []string `json:"Addresses"`
}

// RepoStat is the response of `repo/stat`.
type RepoStat struct {
	RepoSize   int64 `json:"RepoSize"`
	StorageMax int64 `json:"StorageMax"`
	NumObjects int64 `json:"NumObjects"`
}

// GCEvent is one line of the `repo/gc` streaming response.
type GCEvent struct {
	Key   struct {
		Slash string `json:"/"`
	} `json:"Key"`
	Error string `json:"Error,omitempty"`
}

// KeyInfo identifies one IPNS-style mutable-name key.
type KeyInfo struct {
	Name string `json:"Name"`
	ID   string `json:"Id"`
}

// PublishResult is the response of `name/publish`.
type PublishResult struct {
	Name  string `json:"Name"`
	Value string `json:"Value"`
}

// PubSubMessage is one raw message delivered from a `pubsub/sub` stream. Data
// is multibase-encoded on the wire; callers decode it via internal/multibase.
type PubSubMessage struct {
	From     string   `json:"from"`
	Data     string   `json:"data"`
	Seqno    string   `json:"seqno"`
	TopicIDs []string `json:"topicIDs"`
}
