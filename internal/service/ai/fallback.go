package ai

import (
	"regexp"

	"meligy/internal/lang"
)

// Emotion is the coarse mood the rule engine reads from a message.
type Emotion int

const (
	Neutral Emotion = iota
	Frustrated
	Excited
	Confused
)

// Emotion markers are matched case-sensitively.
var (
	excitedRe    = regexp.MustCompile(`!{2,}|amazing|awesome|great|fantastic|love|excited|رائع|جميل|حلو|عظيم`)
	frustratedRe = regexp.MustCompile(`not working|broken|error|problem|issue|help|stuck|مش شغال|مشكلة|مساعدة|تعبان`)
	confusedRe   = regexp.MustCompile(`don't understand|confused|what|how|why|مش فاهم|ازاي|ايه|ليه`)
)

// DetectEmotion checks frustration first, then excitement, then confusion.
func DetectEmotion(input string) Emotion {
	switch {
	case frustratedRe.MatchString(input):
		return Frustrated
	case excitedRe.MatchString(input):
		return Excited
	case confusedRe.MatchString(input):
		return Confused
	}
	return Neutral
}

var fallbackReplies = map[bool]map[Emotion]string{
	true: {
		Frustrated: "آسف إن في مشكلة! 😔 قولي إيه اللي حصل بالظبط وأنا هحاول أحلهالك فوراً.",
		Excited:    "واو! 🎉 شايف إنك متحمس! أنا كمان متحمس أساعدك! قولي عايز إيه وأنا جاهز!",
		Confused:   "مش مشكلة خالص! 😊 أنا هنا عشان أوضحلك أي حاجة. قولي إيه اللي مش واضح وأنا هفهمهولك بأبسط طريقة.",
		Neutral:    "فهمت! 😊 خليني أشوف أحسن طريقة أساعدك بيها...",
	},
	false: {
		Frustrated: "Oh no! 😔 Something's not working right? Tell me exactly what's happening and I'll jump right on fixing it!",
		Excited:    "Wow! 🎉 I can feel your excitement! I'm excited too! Tell me what you need and let's make it happen!",
		Confused:   "No worries at all! 😊 I'm here to make things clear. Tell me what's confusing you and I'll explain it in the simplest way possible.",
		Neutral:    "Got it! 😊 Let me see how I can best help you with that...",
	},
}

// Fallback picks a canned reply by language and emotion. It never calls out.
func Fallback(input string) string {
	return fallbackReplies[lang.IsArabic(input)][DetectEmotion(input)]
}
