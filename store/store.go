package store

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log"
	"math"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/google/uuid"
	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/smf"

	"github.com/pulsecheck/pulsecheck/model"
)

const (
	ticksPerQuarter = 960

	// percussion channel, rimshot for clicks
	clickChannel = 9
	clickKey     = 37
	noteChannel  = 0
	noteKey      = 64
	velocity     = 100
)

// Store persists finished sessions: the raw take as WAV, the scored
// timeline as MIDI, and the report as JSON. A bucket name enables S3
// upload of the same artifacts. Persistence failures are logged and
// swallowed; losing an artifact never takes the session down.
type Store struct {
	dir    string
	bucket string
}

func New(dir, bucket string) *Store {
	return &Store{dir: dir, bucket: bucket}
}

// NewSessionID returns a unique per-session artifact prefix.
func NewSessionID() string {
	return fmt.Sprintf("session-%v-%v",
		time.Now().UTC().Format("20060102-150405"), uuid.NewString()[:8])
}

// SaveSession writes all artifacts for one session and returns the
// local paths that were written.
func (s *Store) SaveSession(id string, samples []float64, sampleRate int, report *model.SessionReport) []string {
	if err := os.MkdirAll(s.dir, 0755); err != nil {
		log.Printf("[Store] could not create sessions dir: %v", err)
		return nil
	}

	var written []string
	wavPath := filepath.Join(s.dir, id+".wav")
	if err := WriteWAV(wavPath, samples, sampleRate); err != nil {
		log.Printf("[Store] could not write %v: %v", wavPath, err)
	} else {
		written = append(written, wavPath)
	}

	if report != nil && report.Error == "" {
		midPath := filepath.Join(s.dir, id+".mid")
		if err := WriteMIDI(midPath, report); err != nil {
			log.Printf("[Store] could not write %v: %v", midPath, err)
		} else {
			written = append(written, midPath)
		}
	}

	if report != nil {
		jsonPath := filepath.Join(s.dir, id+".json")
		if err := writeReportJSON(jsonPath, report); err != nil {
			log.Printf("[Store] could not write %v: %v", jsonPath, err)
		} else {
			written = append(written, jsonPath)
		}
	}

	if s.bucket != "" {
		s.upload(written)
	}
	return written
}

// WriteWAV encodes mono float samples as 16-bit PCM.
func WriteWAV(path string, samples []float64, sampleRate int) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	data := make([]int, len(samples))
	for i, v := range samples {
		if v > 1.0 {
			v = 1.0
		} else if v < -1.0 {
			v = -1.0
		}
		data[i] = int(v * 32767)
	}

	enc := wav.NewEncoder(f, sampleRate, 16, 1, 1)
	buf := &audio.IntBuffer{
		Format:         &audio.Format{NumChannels: 1, SampleRate: sampleRate},
		Data:           data,
		SourceBitDepth: 16,
	}
	if err := enc.Write(buf); err != nil {
		return err
	}
	return enc.Close()
}

// WriteMIDI renders the scored session as a two-track SMF: clicks on
// the percussion channel, guitar notes as played. Times are anchored
// to the first click so the file starts at the grid origin.
func WriteMIDI(path string, report *model.SessionReport) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	mf := BuildSMF(report)
	if _, err := mf.WriteTo(f); err != nil {
		return err
	}
	return nil
}

type timedMessage struct {
	tick uint32
	msg  midi.Message
}

func BuildSMF(report *model.SessionReport) *smf.SMF {
	var mf smf.SMF
	mf.TimeFormat = smf.MetricTicks(ticksPerQuarter)

	var origin float64
	if len(report.ClickTimes) > 0 {
		origin = report.ClickTimes[0]
	} else if len(report.Events) > 0 {
		origin = report.Events[0].TimeSeconds
	}
	tickAt := func(t float64) uint32 {
		ticks := (t - origin) * report.BPM / 60.0 * ticksPerQuarter
		if ticks < 0 {
			ticks = 0
		}
		return uint32(math.Round(ticks))
	}

	var clicks []timedMessage
	for _, t := range report.ClickTimes {
		on := tickAt(t)
		clicks = append(clicks,
			timedMessage{on, midi.NoteOn(clickChannel, clickKey, velocity)},
			timedMessage{on + ticksPerQuarter/8, midi.NoteOff(clickChannel, clickKey)})
	}

	clickTrack := smf.Track{}
	clickTrack.Add(0, smf.MetaTempo(report.BPM))
	addSorted(&clickTrack, clicks)
	clickTrack.Close(0)
	mf.Tracks = append(mf.Tracks, clickTrack)

	var notes []timedMessage
	for _, n := range report.Events {
		on := tickAt(n.TimeSeconds)
		notes = append(notes,
			timedMessage{on, midi.NoteOn(noteChannel, noteKey, velocity)},
			timedMessage{on + ticksPerQuarter/4, midi.NoteOff(noteChannel, noteKey)})
	}

	noteTrack := smf.Track{}
	addSorted(&noteTrack, notes)
	noteTrack.Close(0)
	mf.Tracks = append(mf.Tracks, noteTrack)

	return &mf
}

// addSorted converts absolute-tick messages into the track's delta
// encoding. Note-offs of long events may land after the next note-on,
// so the list is ordered first.
func addSorted(track *smf.Track, msgs []timedMessage) {
	sort.SliceStable(msgs, func(i, j int) bool {
		return msgs[i].tick < msgs[j].tick
	})
	var prev uint32
	for _, m := range msgs {
		track.Add(m.tick-prev, m.msg)
		prev = m.tick
	}
}

func writeReportJSON(path string, report *model.SessionReport) error {
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// upload pushes the written artifacts to S3, one object per file,
// keyed by basename.
func (s *Store) upload(paths []string) {
	sess, err := session.NewSession(&aws.Config{})
	if err != nil {
		log.Printf("[Store] could not create AWS session: %v", err)
		return
	}
	client := s3.New(sess)

	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			log.Printf("[Store] could not read %v for upload: %v", path, err)
			continue
		}
		key := filepath.Base(path)
		_, err = client.PutObject(&s3.PutObjectInput{
			Bucket: aws.String(s.bucket),
			Key:    aws.String(key),
			Body:   bytes.NewReader(data),
		})
		if err != nil {
			log.Printf("[Store] could not upload %v to s3://%v: %v", key, s.bucket, err)
			continue
		}
		log.Printf("[Store] uploaded s3://%v/%v", s.bucket, key)
	}
}
