package transcriber

import "context"

// Fake returns a canned result after emitting canned progress lines.
type Fake struct {
	Res      Result
	Progress []string

	// LastAudioPath records what the fake was asked to transcribe.
	LastAudioPath string
}

func NewFake(res Result) *Fake {
	return &Fake{Res: res}
}

func (f *Fake) Transcribe(_ context.Context, audioPath string, onProgress ProgressFunc) Result {
	f.LastAudioPath = audioPath
	if onProgress != nil {
		for _, line := range f.Progress {
			onProgress(line)
		}
	}
	return f.Res
}
