package catalog

// QuizOption is one answer; Sentiment is the keyword list passed to the model.
type QuizOption struct {
	Label     string `json:"label"`
	Sentiment string `json:"sentiment"`
}

// QuizQuestion is one step of the personality quiz.
type QuizQuestion struct {
	ID       int          `json:"id"`
	Question string       `json:"question"`
	Options  []QuizOption `json:"options"`
}

// PsychQuestions is the personality quiz in presentation order.
var PsychQuestions = []QuizQuestion{
	{
		ID:       1,
		Question: "It's a Friday evening in Dhaka. Where do you find yourself?",
		Options: []QuizOption{
			{Label: "Reading a book at a quiet cafe in Dhanmondi.", Sentiment: "introverted, calm, pastel colors, minimalist"},
			{Label: "Hanging out with a big group of friends at a rooftop.", Sentiment: "extroverted, vibrant, bold patterns, energetic"},
			{Label: "Attending a family dinner or dawats.", Sentiment: "traditional, respectful, elegant, intricate"},
			{Label: "Exploring an art gallery or exhibition.", Sentiment: "artistic, unique, abstract, contemporary"},
		},
	},
	{
		ID:       2,
		Question: "Which color palette speaks to your soul today?",
		Options: []QuizOption{
			{Label: "Earthy tones (Rust, Olive, Beige)", Sentiment: "natural, organic, warm, rustic"},
			{Label: "Jewel tones (Deep Emerald, Royal Blue, Ruby)", Sentiment: "luxurious, regal, shiny, deep"},
			{Label: "Pastel dream (Baby Pink, Sky Blue, Mint)", Sentiment: "soft, dreamy, airy, chiffon"},
			{Label: "Monochrome (Black, White, Grey)", Sentiment: "modern, sharp, structured, bold contrast"},
		},
	},
	{
		ID:       3,
		Question: "How do you want to feel in your new outfit?",
		Options: []QuizOption{
			{Label: "Confident and Bossy", Sentiment: "structured cuts, sharp lines, power dressing"},
			{Label: "Graceful and Feminine", Sentiment: "flowing fabrics, lace, floral, delicate"},
			{Label: "Comfortable and Free", Sentiment: "loose fit, cotton, breathable, simple"},
			{Label: "The Center of Attention", Sentiment: "glitter, sequin, bright, dramatic"},
		},
	},
}
