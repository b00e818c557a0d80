package config

type WorkerKeyStruct struct {
	ExamCompletedQueue string
}

var WorkerKey = &WorkerKeyStruct{
	ExamCompletedQueue: "exam.completed",
}
