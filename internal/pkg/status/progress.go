package status

var statusProgressMap = make(map[Status]int32)

func init() {
	statusProgressMap[Pending] = 0
	statusProgressMap[Transcribing] = 10
	statusProgressMap[Analyzing] = 30
	statusProgressMap[Editing] = 35
	statusProgressMap[Generating] = 40
	statusProgressMap[Completed] = 100
}

// Progress returns percentage value of a progress for status value
func Progress(st Status) int32 {
	pr, found := statusProgressMap[st]
	if found {
		return pr
	}
	return 0
}
