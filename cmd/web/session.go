package main

type sessionKey string

const (
	visitorIDSessionKey = sessionKey("visitorID")
	firstNameSessionKey = sessionKey("firstName")
	flashSessionKey     = sessionKey("flash")
)
