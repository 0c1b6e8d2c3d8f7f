package hotterms

// DefaultFallback is used when no provider answers.
var DefaultFallback = []string{
	"weather forecast this week",
	"how to brew pour over coffee",
	"best hiking trails near me",
	"easy dinner recipes",
	"history of the printing press",
	"how do solar panels work",
	"largest lakes in the world",
	"beginner guitar chords",
	"tips for better sleep",
	"how to repot a houseplant",
	"meaning of serendipity",
	"distance from earth to mars",
	"how to tie a bowline knot",
	"famous paintings in the louvre",
	"healthy breakfast ideas",
	"how tides are formed",
	"origin of the marathon",
	"how to start journaling",
	"when is the next full moon",
	"best board games for families",
	"how to make sourdough starter",
	"tallest mountains in africa",
	"what is compound interest",
	"how to clean a cast iron pan",
	"national parks with waterfalls",
	"how do vaccines work",
	"simple stretching routine",
	"why is the sky blue",
	"learn basic sign language",
	"how to fold a paper crane",
	"fastest land animals",
	"how to plant tomatoes",
	"chess openings for beginners",
	"how rainbows form",
	"classic novels to read",
	"how to change a bike tire",
	"deepest point in the ocean",
	"homemade pizza dough",
	"how bees make honey",
	"ancient wonders of the world",
}
