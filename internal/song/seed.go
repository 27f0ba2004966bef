package song

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"lyrics-viewer/internal/timeline"
)

// seedFile YAML 曲库文件格式
//
//	songs:
//	  - id: clocks
//	    title: Clocks
//	    artist: Coldplay
//	    duration: 307
//	    lrc: |
//	      [00:01.00]Lights go out and I can't be saved
//	      ...
type seedFile struct {
	Songs []seedSong `yaml:"songs"`
}

type seedSong struct {
	Song `yaml:",inline"`
	LRC  string `yaml:"lrc,omitempty"`
}

// LoadSeedFile 读取 YAML 曲库，歌词可以直接写 lyrics 列表，也可以给一段 LRC
func LoadSeedFile(path string) ([]*Song, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read seed file: %w", err)
	}
	return ParseSeed(data)
}

func ParseSeed(data []byte) ([]*Song, error) {
	var f seedFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse seed file: %w", err)
	}

	songs := make([]*Song, 0, len(f.Songs))
	for i := range f.Songs {
		s := f.Songs[i].Song
		if len(s.Lyrics) == 0 && f.Songs[i].LRC != "" {
			s.Lyrics = timeline.ParseLRC(f.Songs[i].LRC)
		}
		if s.ID == "" {
			s.ID = Slug(s.Title)
		}
		songs = append(songs, &s)
	}
	return songs, nil
}
