package dto

type DispatchRowResponse struct {
	Stop             StopResponse `json:"stop"`
	AssignedCleaners int          `json:"assigned_cleaners"`
	CleanerIDs       []string     `json:"cleaner_ids"`
	AssignmentStatus string       `json:"assignment_status,omitempty"`
	Badges           []string     `json:"badges"`
}

type DispatchBoardResponse struct {
	Rows []DispatchRowResponse `json:"rows"`

	Total           int `json:"total"`
	Assigned        int `json:"assigned"`
	Unassigned      int `json:"unassigned"`
	MissingLocation int `json:"missing_location"`
}
