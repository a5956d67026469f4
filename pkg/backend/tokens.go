package backend

import (
	"sync"

	"github.com/Yiozolm/Knode/pkg/conversation"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/tiktoken-go/tokenizer"
)

var (
	codecOnce sync.Once
	codec     tokenizer.Codec
	codecErr  error
)

func defaultCodec() (tokenizer.Codec, error) {
	codecOnce.Do(func() {
		codec, codecErr = tokenizer.Get(tokenizer.Cl100kBase)
	})
	return codec, codecErr
}

// CountTokens estimates the number of tokens of s with the cl100k_base
// encoding.
func CountTokens(s string) (int, error) {
	c, err := defaultCodec()
	if err != nil {
		return 0, errors.Wrap(err, "could not load tokenizer")
	}
	ids, _, err := c.Encode(s)
	if err != nil {
		return 0, errors.Wrap(err, "could not encode")
	}
	return len(ids), nil
}

// EstimateUsage is used for endpoints that do not report usage. Every
// message costs its content plus a small fixed overhead for its role.
func EstimateUsage(messages []ChatMessage, answer string) conversation.TokenUsage {
	const perMessage = 4

	var usage conversation.TokenUsage
	for _, m := range messages {
		n, err := CountTokens(m.Content)
		if err != nil {
			log.Debug().Err(err).Msg("token estimate unavailable")
			return conversation.TokenUsage{}
		}
		usage.Input += n + perMessage
	}
	n, err := CountTokens(answer)
	if err != nil {
		log.Debug().Err(err).Msg("token estimate unavailable")
		return conversation.TokenUsage{}
	}
	usage.Output = n
	return usage
}
