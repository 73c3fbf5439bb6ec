package core

// Resource names used in change sets.
const (
	ResourceAccounts     = "accounts"
	ResourceCategories   = "categories"
	ResourceTransactions = "transactions"
)

// Actions used in change sets.
const (
	ActionCreated = "created"
	ActionUpdated = "updated"
	ActionDeleted = "deleted"
)

// ChangeSet names the rows a mutation touched, so clients and workers can
// invalidate exactly those ids instead of whole collections.
type ChangeSet struct {
	Resource string   `json:"resource"`
	Action   string   `json:"action"`
	UserID   string   `json:"-"`
	IDs      []string `json:"ids"`
}

func NewChangeSet(resource, action, userID string, ids ...string) ChangeSet {
	if ids == nil {
		ids = []string{}
	}
	return ChangeSet{Resource: resource, Action: action, UserID: userID, IDs: ids}
}

func (c ChangeSet) Empty() bool {
	return len(c.IDs) == 0
}
