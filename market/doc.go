/*
Package market contains a state machine, contained in the Market type, for
managing the escrowed sale of listed items.

The Market type once constructed contains functions for the four operations of
an item's lifecycle:
- List: A seller lists an item for sale.
- Buy: A buyer pays the item's price into escrow.
- Ship: The seller ships the sold item.
- Receive: The buyer confirms receipt, releasing the escrowed price to the
seller.

Each item advances through the states ForSale, Sold, Shipped, and Received, in
that order, one state per successful operation. An operation either applies in
full, including any value movement, or not at all. Value is captured into
escrow by Buy and released to the seller by Receive, through the Capturer and
Releaser the Market is constructed with.

	+-----------+       +-----------+
	|  Seller   |       |   Buyer   |
	+-----+-----+       +-----+-----+
	      |                   |
	    List                  |
	      |                 Buy (price into escrow)
	    Ship                  |
	      |                Receive (escrow to seller)

Items are held in a Registry which allocates SKUs sequentially and never
deletes a record; a Received item remains as an immutable historical record.

Operations on a Market are safe for concurrent use. Each operation acquires
exclusive access to the single item record it acts on for its duration and
never holds more than one record at a time.
*/
package market
