package domain

// StopSummary is the assignment/checklist bookkeeping for one stop, owned by
// an external collaborator and joined in read-only for the dispatch board.
type StopSummary struct {
	StopID             string
	AssignedCleaners   int
	CleanerIDs         []string
	AssignmentStatus   string
	ChecklistItems     int
	ChecklistCompleted int
}

// Dispatch board badges.
const (
	BadgeUnassigned       = "unassigned"
	BadgeAssigned         = "assigned"
	BadgeNeedsLocation    = "needs_location"
	BadgeMapped           = "mapped"
	BadgeChecklistBlocked = "checklist_blocked"
	BadgePriority         = "priority"
)

// DispatchRow is one display row of the dispatch board read model.
type DispatchRow struct {
	Stop    *ServiceStop
	Summary StopSummary
	Badges  []string
}

// DispatchBoard joins a day's stops with their assignment and checklist
// summaries, plus aggregate totals for the header.
type DispatchBoard struct {
	Rows []DispatchRow

	Total           int
	Assigned        int
	Unassigned      int
	MissingLocation int
}
