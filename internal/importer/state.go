package importer

// State is one step of the import state machine. Transitions are strictly
// ordered; Failed is reachable from every non-terminal state.
type State string

const (
	StateIdle                    State = "Idle"
	StateResolvingConfig         State = "ResolvingConfig"
	StateOpeningSourceTab        State = "OpeningSourceTab"
	StateAwaitingSourceLoad      State = "AwaitingSourceLoad"
	StateEnsuringScraper         State = "EnsuringScraper"
	StateScraping                State = "Scraping"
	StateNormalizing             State = "Normalizing"
	StateResolvingDestinationTab State = "ResolvingDestinationTab"
	StateEnsuringBridge          State = "EnsuringBridge"
	StateDelivering              State = "Delivering"
	StateDone                    State = "Done"
	StateFailed                  State = "Failed"
)
