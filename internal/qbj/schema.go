package qbj

// Wire types for the two JSON inputs. Only the fields the aggregator uses
// are decoded; bonuses and answer counts are ignored.

type rawName struct {
	Name string `json:"name"`
}

type rawValue struct {
	Value int `json:"value"`
}

type rawLineup struct {
	FirstQuestion int       `json:"first_question"`
	Players       []rawName `json:"players"`
}

type rawMatchPlayer struct {
	Player       rawName `json:"player"`
	TossupsHeard int     `json:"tossups_heard"`
}

type rawMatchTeam struct {
	Team         rawName          `json:"team"`
	BonusPoints  int              `json:"bonus_points"`
	Lineups      []rawLineup      `json:"lineups"`
	MatchPlayers []rawMatchPlayer `json:"match_players"`
}

type rawBuzzPosition struct {
	WordIndex int `json:"word_index"`
}

type rawBuzz struct {
	Player       rawName         `json:"player"`
	Team         rawName         `json:"team"`
	BuzzPosition rawBuzzPosition `json:"buzz_position"`
	Result       rawValue        `json:"result"`
}

type rawMatchQuestion struct {
	QuestionNumber int       `json:"question_number"`
	Buzzes         []rawBuzz `json:"buzzes"`
}

type rawMatch struct {
	TossupsRead    int                `json:"tossups_read"`
	Round          int                `json:"_round"`
	Packets        string             `json:"packets"`
	MatchTeams     []rawMatchTeam     `json:"match_teams"`
	MatchQuestions []rawMatchQuestion `json:"match_questions"`
}

type rawTossup struct {
	Question          string `json:"question"`
	QuestionSanitized string `json:"question_sanitized"`
	Answer            string `json:"answer"`
	AnswerSanitized   string `json:"answer_sanitized"`
	Metadata          string `json:"metadata"`
}

type rawPacket struct {
	Tossups []rawTossup `json:"tossups"`
}
