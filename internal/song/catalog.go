package song

import "lyrics-viewer/internal/timeline"

// DefaultCatalog 内置曲库
func DefaultCatalog() []*Song {
	return []*Song{
		{
			ID:        "viva-la-vida",
			Title:     "Viva La Vida",
			Artist:    "Coldplay",
			Album:     "Viva la Vida or Death and All His Friends",
			Year:      2008,
			Duration:  242,
			YoutubeID: "dvgZkm1xWPE",
			Lyrics: verses(
				0, "I used to rule the world",
				4, "Seas would rise when I gave the word",
				8, "Now in the morning I sleep alone",
				12, "Sweep the streets I used to own",
				20, "I used to roll the dice",
				24, "Feel the fear in my enemy's eyes",
				28, "Listen as the crowd would sing",
				32, "Now the old king is dead! Long live the king!",
				40, "One minute I held the key",
				44, "Next the walls were closed on me",
				48, "And I discovered that my castles stand",
				52, "Upon pillars of salt and pillars of sand",
				60, "I hear Jerusalem bells are ringing",
				64, "Roman cavalry choirs are singing",
				68, "Be my mirror, my sword and shield",
				72, "My missionaries in a foreign field",
				76, "For some reason I can't explain",
				80, "Once you go there was never, never an honest word",
				84, "And that was when I ruled the world",
			),
		},
		{
			ID:        "fix-you",
			Title:     "Fix You",
			Artist:    "Coldplay",
			Album:     "X&Y",
			Year:      2005,
			Duration:  294,
			YoutubeID: "k4V3Mo61fJM",
			Lyrics: verses(
				0, "When you try your best, but you don't succeed",
				4, "When you get what you want, but not what you need",
				8, "When you feel so tired, but you can't sleep",
				12, "Stuck in reverse",
				20, "And the tears come streaming down your face",
				24, "When you lose something you can't replace",
				28, "When you love someone, but it goes to waste",
				32, "Could it be worse?",
				40, "Lights will guide you home",
				44, "And ignite your bones",
				48, "And I will try to fix you",
			),
		},
		{
			ID:        "yellow",
			Title:     "Yellow",
			Artist:    "Coldplay",
			Album:     "Parachutes",
			Year:      2000,
			Duration:  269,
			YoutubeID: "yKNxeF4KMsY",
			Lyrics: verses(
				0, "Look at the stars",
				4, "Look how they shine for you",
				8, "And everything you do",
				12, "Yeah, they were all yellow",
				20, "I came along",
				24, "I wrote a song for you",
				28, "And all the things you do",
				32, "And it was called Yellow",
				40, "So then I took my turn",
				44, "Oh, what a thing to have done",
				48, "And it was all yellow",
			),
		},
		{
			ID:        "the-scientist",
			Title:     "The Scientist",
			Artist:    "Coldplay",
			Album:     "A Rush of Blood to the Head",
			Year:      2002,
			Duration:  309,
			YoutubeID: "RB-RcX5DS5A",
			Lyrics: verses(
				0, "Come up to meet you, tell you I'm sorry",
				4, "You don't know how lovely you are",
				8, "I had to find you, tell you I need you",
				12, "Tell you I set you apart",
				20, "Tell me your secrets and ask me your questions",
				24, "Oh, let's go back to the start",
				28, "Running in circles, coming up tails",
				32, "Heads on a science apart",
				40, "Nobody said it was easy",
				44, "It's such a shame for us to part",
				48, "Nobody said it was easy",
				52, "No one ever said it would be this hard",
				56, "Oh, take me back to the start",
			),
		},
		{
			ID:        "paradise",
			Title:     "Paradise",
			Artist:    "Coldplay",
			Album:     "Mylo Xyloto",
			Year:      2011,
			Duration:  278,
			YoutubeID: "1G4isv_Fylg",
			Lyrics: verses(
				0, "When she was just a girl",
				4, "She expected the world",
				8, "But it flew away from her reach",
				12, "So she ran away in her sleep",
				20, "And dreamed of para-para-paradise",
				24, "Para-para-paradise",
				28, "Para-para-paradise",
				32, "Every time she closed her eyes",
				40, "When she was just a girl",
				44, "She expected the world",
				48, "But it flew away from her reach",
				52, "And the bullets catch in her teeth",
			),
		},
	}
}

// verses 按 (时间戳, 文本) 成对展开，每行默认持续 4 秒
func verses(pairs ...any) timeline.Timeline {
	lines := make(timeline.Timeline, 0, len(pairs)/2)
	for i := 0; i+1 < len(pairs); i += 2 {
		lines = append(lines, timeline.Line{
			Timestamp: float64(pairs[i].(int)),
			Text:      pairs[i+1].(string),
			Duration:  4,
		})
	}
	return lines
}
