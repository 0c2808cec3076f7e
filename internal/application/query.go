package application

// ReplayQueryFilter narrows a listing of stored replays. Zero values mean no
// constraint; Limit defaults to the store's own default.
type ReplayQueryFilter struct {
	Sender  string
	Success *bool
	Epoch   *uint64
	Limit   int
}
