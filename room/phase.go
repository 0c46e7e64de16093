package room

type Status string

const (
	Waiting    Status = "waiting"
	Starting   Status = "starting"
	InProgress Status = "inProgress"
	Finished   Status = "finished"
)

// allowed lists every legal status change. inProgress -> finished covers both
// the end timer and the early stop when players drop below the minimum.
var allowed = map[Status][]Status{
	Waiting:    {Starting},
	Starting:   {InProgress},
	InProgress: {Finished},
}

func canTransition(from, to Status) bool {
	for _, s := range allowed[from] {
		if s == to {
			return true
		}
	}
	return false
}

// scheduled task names, keyed under the room id
const (
	taskStart = "start"
	taskEnd   = "end"
	taskReap  = "reap"
)
