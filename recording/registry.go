package recording

import "github.com/gogpu/imgl"

// Name is the name the recorder is registered under.
const Name = imgl.BackendRecording

// The recorder registers itself following the database/sql driver pattern:
//
//	import _ "github.com/gogpu/imgl/recording"
//
//	b, err := imgl.NewBackend("recording")
func init() {
	imgl.RegisterBackend(Name, func() (imgl.Backend, error) {
		return NewRecorder(), nil
	})
}
