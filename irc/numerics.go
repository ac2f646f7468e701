package irc

// Numeric reply codes used by this dialect. 001/300/002 frame the MOTD
// the way legacy clients of this network expect it; 300 doubles as the
// AuthServ status code.
const (
	RPL_WELCOME       = 1
	RPL_ENDOFMOTD     = 2
	RPL_MOTD          = 300
	RPL_CHANNELMODEIS = 324
	RPL_NOTOPIC       = 331
	RPL_TOPIC         = 332
	RPL_NAMREPLY      = 353
	RPL_ENDOFNAMES    = 366

	ERR_NOSUCHCHANNEL    = 403
	ERR_NONICKNAMEGIVEN  = 431
	ERR_NICKNAMEINUSE    = 433
	ERR_NOTONCHANNEL     = 442
	ERR_NEEDMOREPARAMS   = 461
	ERR_INVITEONLYCHAN   = 473
	ERR_BANNEDFROMCHAN   = 474
	ERR_CHANOPRIVSNEEDED = 482
)
