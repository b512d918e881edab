package display

// Word bits for the German word-clock face. A frame is a single uint32
// with one bit per word plus the four minute corners; the physical
// LED columns behind each word belong to the frame writer.
const (
	WordIt           uint32 = 1 << iota // ES
	WordIs                              // IST
	WordFive                            // FUENF
	WordTen                             // ZEHN
	WordQuarter                         // VIERTEL
	WordTwenty                          // ZWANZIG
	WordThreeQuarter                    // DREIVIERTEL
	WordHalf                            // HALB
	WordTo                              // VOR
	WordPast                            // NACH
	WordClock                           // UHR

	WordHourOne
	WordHourTwo
	WordHourThree
	WordHourFour
	WordHourFive
	WordHourSix
	WordHourSeven
	WordHourEight
	WordHourNine
	WordHourTen
	WordHourEleven
	WordHourTwelve

	CornerOne
	CornerTwo
	CornerThree
	CornerFour
)

// hourWords indexes the hour words with twelve o'clock at index 0,
// matching hour%12.
var hourWords = [12]uint32{
	WordHourTwelve,
	WordHourOne,
	WordHourTwo,
	WordHourThree,
	WordHourFour,
	WordHourFive,
	WordHourSix,
	WordHourSeven,
	WordHourEight,
	WordHourNine,
	WordHourTen,
	WordHourEleven,
}

var cornerWords = [4]uint32{CornerOne, CornerTwo, CornerThree, CornerFour}

// demoGroups partitions the face into the eight blocks the demo mode
// multiplexes through.
var demoGroups = [8]uint32{
	WordIt | WordIs | WordFive,
	WordTen | WordQuarter | WordTwenty,
	WordThreeQuarter | WordHalf,
	WordTo | WordPast | WordClock,
	WordHourOne | WordHourTwo | WordHourThree,
	WordHourFour | WordHourFive | WordHourSix,
	WordHourSeven | WordHourEight | WordHourNine,
	WordHourTen | WordHourEleven | WordHourTwelve | CornerOne | CornerTwo | CornerThree | CornerFour,
}
