package dto

type NetworkDTO struct {
	ID        uint64 `json:"id"`
	Name      string `json:"name"`
	Active    bool   `json:"active"`
	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`
}

type BranchDTO struct {
	ID          uint64           `json:"id"`
	Name        string           `json:"name"`
	Active      bool             `json:"active"`
	StartDate   string           `json:"start_date,omitempty"`
	AutoCreated bool             `json:"auto_created"`
	Network     *ShortNetworkDTO `json:"network,omitempty"`
	CreatedAt   string           `json:"created_at"`
}

type EmployeeDTO struct {
	ID        uint64           `json:"id"`
	Name      string           `json:"name"`
	Active    bool             `json:"active"`
	StartDate string           `json:"start_date,omitempty"`
	Branch    *ShortBranchDTO  `json:"branch,omitempty"`
	Network   *ShortNetworkDTO `json:"network,omitempty"`
	CreatedAt string           `json:"created_at"`
}

type ShortNetworkDTO struct {
	ID   uint64 `json:"id"`
	Name string `json:"name"`
}

type ShortBranchDTO struct {
	ID   uint64 `json:"id"`
	Name string `json:"name"`
}
