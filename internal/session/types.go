package session

import (
	"github.com/vmihailenco/msgpack/v5"
)

type DBSession struct {
	Token   string `msgpack:"token"`
	IsAdmin bool   `msgpack:"isAdmin"`
	UserID  string `msgpack:"userId"`
}

func (s *DBSession) MarshalBinary() (data []byte, err error) {
	type alias DBSession
	return msgpack.Marshal((*alias)(s))
}

func (s *DBSession) UnmarshalBinary(data []byte) error {
	type alias DBSession
	return msgpack.Unmarshal(data, (*alias)(s))
}

type DBBubblePrefs struct {
	UserBackground  string `msgpack:"bubbleUser"`
	UserText        string `msgpack:"bubbleUserText"`
	AdminBackground string `msgpack:"bubbleAdmin"`
	AdminText       string `msgpack:"bubbleAdminText"`
}

func (p *DBBubblePrefs) MarshalBinary() (data []byte, err error) {
	type alias DBBubblePrefs
	return msgpack.Marshal((*alias)(p))
}

func (p *DBBubblePrefs) UnmarshalBinary(data []byte) error {
	type alias DBBubblePrefs
	return msgpack.Unmarshal(data, (*alias)(p))
}
