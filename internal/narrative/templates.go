package narrative

import (
	"fmt"

	"memorial-narrator/internal/domain"
)

// Template tables for Compose. Every branch on tone, style, or emotion lives
// here; fallback.go only looks things up.

type openingFunc func(name string) string

func fixed(text string) openingFunc {
	return func(string) string { return text }
}

func named(format string) openingFunc {
	return func(name string) string { return fmt.Sprintf(format, name) }
}

var defaultVoice = domain.Voice{Tone: domain.DefaultTone, Style: domain.DefaultStyle}

var openings = map[domain.Voice]openingFunc{
	{Tone: domain.ToneWarm, Style: domain.StyleConversational}: fixed(
		"I was born with a spirit of adventure and a heart full of love. Throughout my life, I cherished the moments shared with family and friends, creating memories that would last beyond my time."),
	{Tone: domain.ToneReflective, Style: domain.StyleConversational}: fixed(
		"Looking back on my journey through life, I find myself reflecting on the moments that shaped who I became. The tapestry of my existence was woven with threads of connection, each person in my life contributing their own unique color."),
	{Tone: domain.ToneHumorous, Style: domain.StyleConversational}: fixed(
		"Well, let me tell you about this wild ride I called life! I never was one to take things too seriously - what's the fun in that? Life's too short not to find the humor in everyday moments."),
	{Tone: domain.ToneRespectful, Style: domain.StyleConversational}: fixed(
		"With gratitude for the life I was blessed to live, I share these memories. Each day was a gift, and I strived to honor that gift through my actions and relationships with others."),

	{Tone: domain.ToneWarm, Style: domain.StylePoetic}: fixed(
		"Like leaves carried on autumn winds, my days flowed one into another, each leaving its imprint on my soul. The symphony of my existence played in both major and minor keys, its melody echoing beyond my earthly journey."),
	{Tone: domain.ToneReflective, Style: domain.StylePoetic}: fixed(
		"In the stillness that follows a long day, I see my life as a slow river bending through seasons of light and shade. Every face I loved is a stone it shaped itself around, and every memory a ripple that has not yet reached the shore."),
	{Tone: domain.ToneHumorous, Style: domain.StylePoetic}: fixed(
		"If my life was a poem, it rhymed in all the wrong places and was better for it. Laughter was the meter I kept, tumbling through my days like a song sung slightly off-key, and everyone who joined in made the chorus louder."),
	{Tone: domain.ToneRespectful, Style: domain.StylePoetic}: fixed(
		"With quiet gratitude I gather the verses of my life, each one a gift I tried to honor. Like a candle passed from hand to hand, the light I carried was lit by others, and I hope I returned it brighter."),

	{Tone: domain.ToneWarm, Style: domain.StyleStorytelling}: named(
		"Once upon a time, there was a person named %s. My story began with the usual hopes and dreams, but as with all good tales, it was the unexpected twists and cherished characters that made it truly worth telling."),
	{Tone: domain.ToneReflective, Style: domain.StyleStorytelling}: named(
		"Every story is clearer from its last page. Mine is the story of %s, and looking back over its chapters I can see how each turn, expected or not, led me toward the people who made it worth telling."),
	{Tone: domain.ToneHumorous, Style: domain.StyleStorytelling}: named(
		"Pull up a chair, because the tale of %s has more plot twists than anyone planned, most of them my own doing. Every good story needs a lovable troublemaker, and I was happy to volunteer."),
	{Tone: domain.ToneRespectful, Style: domain.StyleStorytelling}: named(
		"This is the story of %s, told with gratitude for every chapter. It is a tale shaped less by grand events than by the steady kindness of the people who walked beside me."),

	{Tone: domain.ToneWarm, Style: domain.StyleFormal}: named(
		"I, %s, was privileged to experience a life marked by meaningful connections and purposeful endeavors. Throughout the course of my existence, I encountered numerous individuals who significantly impacted my personal development."),
	{Tone: domain.ToneReflective, Style: domain.StyleFormal}: named(
		"I, %s, have had occasion to consider the course of my life with some care. Upon reflection, its most significant developments arose not from circumstance alone but from the individuals whose influence shaped my character."),
	{Tone: domain.ToneHumorous, Style: domain.StyleFormal}: named(
		"I, %s, hereby submit this account of my life, with the formal caveat that a considerable portion of it was spent laughing. The record will show that I rarely declined an opportunity for good-natured mischief."),
	{Tone: domain.ToneRespectful, Style: domain.StyleFormal}: named(
		"I, %s, offer this account of my life with sincere gratitude. It was my honor to share my years with individuals of great character, and I remain indebted to each of them for their kindness and counsel."),
}

// emotionLines is keyed by emotion, then tone. The empty tone is the default.
var emotionLines = map[domain.Emotion]map[domain.Tone]string{
	domain.EmotionJoyful: {
		domain.ToneHumorous:   " It was absolutely hilarious!",
		domain.ToneReflective: " It brought me such profound joy that still warms my heart.",
		"":                    " It brought me such joy.",
	},
	domain.EmotionFunny: {
		domain.ToneHumorous: " We laughed until our sides hurt!",
		"":                  " We had such a good laugh about it.",
	},
	domain.EmotionThoughtful: {
		domain.ToneReflective: " It led me to profound contemplation about the nature of our connections.",
		"":                    " It gave me much to reflect on.",
	},
	domain.EmotionBittersweet: {
		domain.ToneReflective: " Looking back, it fills me with a complex tapestry of emotions - joy intertwined with gentle sorrow.",
		"":                    " Looking back, it fills me with a sense of bittersweet nostalgia.",
	},
	domain.EmotionSad: {
		domain.ToneReflective: " It was during this difficult time that I truly understood the depth of human resilience.",
		"":                    " It was a challenging time, but it shaped who I became.",
	},
}

var attributions = map[domain.Style]func(who string) string{
	domain.StyleConversational: func(who string) string { return fmt.Sprintf("%s once remembered: ", who) },
	domain.StylePoetic:         func(who string) string { return fmt.Sprintf("In the garden of memories, %s preserved this moment: ", who) },
	domain.StyleStorytelling:   func(who string) string { return fmt.Sprintf("I remember a chapter of my story that %s still tells: ", who) },
	domain.StyleFormal:         func(who string) string { return fmt.Sprintf("As recounted by %s, an incident of significance occurred: ", who) },
}

var relationshipLines = map[domain.Style]func(list string) string{
	domain.StyleConversational: func(list string) string {
		return fmt.Sprintf("My relationships with my %s were the cornerstones of my life. They brought me joy, taught me valuable lessons, and supported me through both celebrations and challenges.", list)
	},
	domain.StylePoetic: func(list string) string {
		return fmt.Sprintf("The constellation of my %s formed the heavens under which I lived my days, their light guiding me through both shadow and sunshine.", list)
	},
	domain.StyleStorytelling: func(list string) string {
		return fmt.Sprintf("The characters who shaped my story most deeply were my %s. They were the heroes and companions of my tale, each playing their unique and irreplaceable role.", list)
	},
	domain.StyleFormal: func(list string) string {
		return fmt.Sprintf("My associations with my %s constituted the fundamental social structure that supported my existence and facilitated my personal development.", list)
	},
}

// voiceRule matches when its non-empty fields equal the voice. Rule lists are
// ordered; the first match wins and the last rule matches everything.
type voiceRule struct {
	tone  domain.Tone
	style domain.Style
	text  string
}

func (r voiceRule) matches(v domain.Voice) bool {
	return (r.tone == "" || r.tone == v.Tone) && (r.style == "" || r.style == v.Style)
}

func selectRule(rules []voiceRule, v domain.Voice) string {
	for _, r := range rules {
		if r.matches(v) {
			return r.text
		}
	}
	return ""
}

var joyRules = []voiceRule{
	{tone: domain.ToneHumorous, text: "Boy, did I love a good laugh! Finding the funny side of life was my specialty. Whether it was cracking jokes at family gatherings or finding humor in everyday mishaps, I believed life's too short not to have a chuckle."},
	{style: domain.StylePoetic, text: "Joy danced through my days like sunlight on water, catching and reflecting in unexpected moments of delight - in simple pleasures, in the harmony of family gatherings, and in the peaceful solitude of quiet evenings."},
	{style: domain.StyleFormal, text: "I derived considerable pleasure from moments of levity and familial congregation. The pursuit of happiness through simple recreational activities was a consistent theme throughout my existence."},
	{text: "I loved to laugh and find happiness in the simple moments of life. Whether it was an adventure with friends, a family gathering, or a quiet evening at home, I treasured these joyful times."},
}

var thoughtfulRules = []voiceRule{
	{style: domain.StylePoetic, text: "In quiet moments of contemplation, I would ponder the ripples of my actions spreading outward, touching shores I might never see. The weight of a kind word, the legacy of a thoughtful deed - these were the currencies I valued most."},
	{style: domain.StyleStorytelling, text: "The chapters of my life were not only about what happened, but what those events meant. I was the kind of character who would pause the action to consider the deeper themes unfolding in my story."},
	{text: "I often reflected on the deeper meaning of life, considering how my actions and words might impact those around me. I believed in living thoughtfully and with purpose."},
}

var bittersweetRules = []voiceRule{
	{tone: domain.ToneReflective, text: "The valleys of my life were as formative as the peaks. In those shadowed moments, I discovered strengths I never knew I possessed and learned to appreciate the dawn that inevitably follows even the longest night."},
	{style: domain.StylePoetic, text: "Even in sorrow, I found strange beauty - the way grief carves rivers of gratitude through the bedrock of being. These darker chapters wrote themselves in invisible ink upon my soul, revealed only in the light of retrospection."},
	{text: "Like everyone, I faced challenges and difficult times. These moments shaped me just as much as the happy ones, teaching me resilience and appreciation for life's precious moments."},
}

var closingRules = []voiceRule{
	{style: domain.StylePoetic, text: "Though the book of my physical presence has closed, the stories continue to be told, each memory a thread in the continuing tapestry of connection. In being remembered, I remain - a whisper in laughter, a lesson in struggle, a presence in love."},
	{tone: domain.ToneReflective, text: "Though I may no longer walk among you, I find a certain peace in knowing that the moments we shared continue to resonate. Each story shared is another moment of connection, transcending the boundaries between then and now, between here and there."},
	{style: domain.StyleStorytelling, text: "And so my story continues, not on pages I write myself, but in the chapters added by those who knew me. With each memory shared, my narrative grows richer, adding new dimensions to the character I was and continue to be."},
	{style: domain.StyleFormal, text: "Despite the conclusion of my physical existence, my legacy persists through the recollections preserved by those with whom I formed meaningful connections. Each contributed memory serves to further develop the comprehensive understanding of my identity and influence."},
	{text: "Though I may no longer be physically present, my spirit lives on through the memories shared by those who knew me. Each story, each recollection adds another brushstroke to the portrait of who I was."},
}
