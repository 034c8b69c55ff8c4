package interfaces

// LineTransport определяет контракт строкового обмена по последовательному
// каналу. Драйверы владеют транспортом монопольно и не знают, стоит за ним
// реальный порт или подмена в тестах.
type LineTransport interface {
	Open() error
	WriteLine(text string) error
	ReadLine() (string, error)
	Close() error
}
